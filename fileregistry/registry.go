package fileregistry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/skosovsky/toolround/manifest"
)

var _ manifest.ProfileRegistry = (*Registry)(nil)

var extensions = []string{".yaml", ".yml"}

// Registry loads profiles from the filesystem (lazy, cached).
type Registry struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]*manifest.Profile
}

// New creates a Registry that reads profiles from dir.
func New(dir string) *Registry {
	return &Registry{
		dir:   dir,
		cache: make(map[string]*manifest.Profile),
	}
}

// GetProfile returns a copy of the profile for name and env. Lazy-loads and caches.
func (r *Registry) GetProfile(ctx context.Context, name, env string) (*manifest.Profile, error) {
	if err := manifest.ValidateName(name, env); err != nil {
		return nil, err
	}
	key := name + ":" + env
	r.mu.RLock()
	p, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return p.Clone(), nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok = r.cache[key]; ok {
		return p.Clone(), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var candidates []string
	if env != "" {
		for _, ext := range extensions {
			candidates = append(candidates, name+"."+env+ext)
		}
	}
	for _, ext := range extensions {
		candidates = append(candidates, name+ext)
	}
	for _, file := range candidates {
		p, err := manifest.ParseFile(filepath.Join(r.dir, file))
		if err == nil {
			p.Environment = env
			r.cache[key] = p
			return p.Clone(), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil, fmt.Errorf("%w: %q", manifest.ErrProfileNotFound, name)
}

// Reload clears the cache so edited files are read again.
func (r *Registry) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*manifest.Profile)
}
