package embedregistry

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/skosovsky/toolround/manifest"
)

var _ manifest.ProfileRegistry = (*Registry)(nil)

// Registry holds every profile found under the root at construction. Read-only, so no mutex.
type Registry struct {
	cache map[string]*manifest.Profile
}

// New walks fsys under root and parses every .yaml and .yml file.
// "name.yaml" is stored as the base profile of name, "name.env.yaml" as its env variant.
func New(fsys fs.FS, root string) (*Registry, error) {
	r := &Registry{cache: make(map[string]*manifest.Profile)}
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := path.Ext(p)
		if d.IsDir() || (ext != ".yaml" && ext != ".yml") {
			return nil
		}
		prof, err := manifest.ParseFS(fsys, p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		name, env := strings.TrimSuffix(path.Base(p), ext), ""
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name, env = name[:idx], name[idx+1:]
		}
		r.cache[name+":"+env] = prof
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetProfile returns a copy of the env variant of name, falling back to the base profile.
func (r *Registry) GetProfile(ctx context.Context, name, env string) (*manifest.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := manifest.ValidateName(name, env); err != nil {
		return nil, err
	}
	p, ok := r.cache[name+":"+env]
	if !ok {
		p, ok = r.cache[name+":"]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", manifest.ErrProfileNotFound, name)
	}
	c := p.Clone()
	c.Environment = env
	return c, nil
}

// Names lists the base profile names, unordered.
func (r *Registry) Names() []string {
	var names []string
	for key := range r.cache {
		if name, env, _ := strings.Cut(key, ":"); env == "" {
			names = append(names, name)
		}
	}
	return names
}
