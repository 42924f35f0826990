package remoteregistry

import (
	"context"

	"github.com/skosovsky/toolround/manifest"
)

// Fetcher fetches raw profile YAML by name and env.
//
// Return ErrNotFound when no candidate exists; wrap other errors in ErrFetchFailed.
type Fetcher interface {
	Fetch(ctx context.Context, name, env string) ([]byte, error)
}

// CandidatePaths returns file names in resolution order:
// name.env.yaml, name.env.yml, then name.yaml, name.yml.
// Call manifest.ValidateName first.
func CandidatePaths(name, env string) []string {
	var out []string
	if env != "" {
		out = append(out, name+"."+env+".yaml", name+"."+env+".yml")
	}
	return append(out, name+".yaml", name+".yml")
}

func validate(name, env string) error {
	return manifest.ValidateName(name, env)
}
