package git

import "github.com/rs/zerolog"

// Option configures Fetcher.
type Option func(*Fetcher)

// WithBranch sets the branch to clone. Default is "main".
func WithBranch(branch string) Option {
	return func(g *Fetcher) {
		g.branch = branch
	}
}

// WithDir sets the subdirectory holding the profiles. Default is the repo root.
func WithDir(dir string) Option {
	return func(g *Fetcher) {
		g.dir = dir
	}
}

// WithDepth sets the clone depth. Default is 1; 0 clones full history.
func WithDepth(depth int) Option {
	return func(g *Fetcher) {
		g.depth = depth
	}
}

// WithAuth sets a token for HTTPS auth (sent as BasicAuth "x-access-token").
func WithAuth(token string) Option {
	return func(g *Fetcher) {
		g.authToken = token
	}
}

// WithLogger sets the logger for pull failures. Default discards.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Fetcher) {
		g.logger = l
	}
}
