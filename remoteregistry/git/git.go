package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/rs/zerolog"

	"github.com/skosovsky/toolround/manifest"
	"github.com/skosovsky/toolround/remoteregistry"
)

var _ remoteregistry.Fetcher = (*Fetcher)(nil)

// Fetcher reads profiles from a clone of a Git repository. Call Close to remove the clone.
type Fetcher struct {
	repoURL   string
	branch    string
	dir       string
	depth     int
	authToken string
	logger    zerolog.Logger

	mu       sync.Mutex
	localDir string
	repo     *git.Repository
}

// NewFetcher creates a Fetcher for repoURL. Nothing is cloned until the first Fetch.
func NewFetcher(repoURL string, opts ...Option) (*Fetcher, error) {
	if strings.TrimSpace(repoURL) == "" {
		return nil, errors.New("remoteregistry/git: repo URL must not be empty")
	}
	g := &Fetcher{
		repoURL: repoURL,
		branch:  "main",
		depth:   1,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if strings.TrimSpace(g.branch) == "" {
		return nil, errors.New("remoteregistry/git: branch must not be empty")
	}
	return g, nil
}

// Fetch reads the first of remoteregistry.CandidatePaths present under the profile directory.
func (g *Fetcher) Fetch(ctx context.Context, name, env string) ([]byte, error) {
	if err := manifest.ValidateName(name, env); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.ensureClone(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", remoteregistry.ErrFetchFailed, err)
	}
	baseDir := filepath.Clean(filepath.Join(g.localDir, g.dir))
	for _, rel := range remoteregistry.CandidatePaths(name, env) {
		path := filepath.Join(baseDir, rel)
		if r, err := filepath.Rel(baseDir, path); err != nil || strings.HasPrefix(r, "..") {
			continue
		}
		data, err := os.ReadFile(path) // #nosec G304 -- path stays under baseDir
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", remoteregistry.ErrFetchFailed, rel, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", remoteregistry.ErrNotFound, name)
}

func (g *Fetcher) auth() *http.BasicAuth {
	if g.authToken == "" {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: g.authToken}
}

func (g *Fetcher) ensureClone(ctx context.Context) error {
	if g.repo != nil {
		if strings.HasPrefix(g.repoURL, "file://") {
			return nil
		}
		wt, err := g.repo.Worktree()
		if err != nil {
			return fmt.Errorf("worktree: %w", err)
		}
		opts := &git.PullOptions{ReferenceName: plumbing.NewBranchReferenceName(g.branch), SingleBranch: true}
		if a := g.auth(); a != nil {
			opts.Auth = a
		}
		if err := wt.PullContext(ctx, opts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			// The existing working tree still serves; the next fetch pulls again.
			g.logger.Warn().Err(err).Str("repo", g.repoURL).Msg("git pull failed, using cached clone")
		}
		return nil
	}
	dir, err := os.MkdirTemp("", "toolround-profiles-*")
	if err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	opts := &git.CloneOptions{
		URL:           g.repoURL,
		ReferenceName: plumbing.NewBranchReferenceName(g.branch),
		SingleBranch:  true,
		Depth:         g.depth,
	}
	if a := g.auth(); a != nil {
		opts.Auth = a
	}
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("clone: %w", err)
	}
	g.localDir = dir
	g.repo = repo
	return nil
}

// Close removes the local clone. Safe to call more than once; a later Fetch clones again.
func (g *Fetcher) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.localDir == "" {
		return nil
	}
	dir := g.localDir
	g.localDir = ""
	g.repo = nil
	return os.RemoveAll(dir)
}
