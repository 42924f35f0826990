package remoteregistry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/skosovsky/toolround/manifest"
)

const defaultTTL = 5 * time.Minute

var _ manifest.ProfileRegistry = (*Registry)(nil)

// detachCancel returns a context that outlives cancellation of parent but keeps its deadline,
// so one caller giving up does not fail the fetch shared with others.
func detachCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if dl, ok := parent.Deadline(); ok {
		return context.WithDeadline(ctx, dl)
	}
	return context.WithCancel(ctx)
}

type cacheEntry struct {
	profile   *manifest.Profile
	expiresAt time.Time
}

// Registry loads profiles via a Fetcher and caches them with a TTL.
type Registry struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	cache   map[string]*cacheEntry
	sf      singleflight.Group
}

// New creates a Registry over fetcher. Panics if fetcher is nil.
func New(fetcher Fetcher, opts ...Option) *Registry {
	if fetcher == nil {
		panic("remoteregistry: Fetcher must not be nil")
	}
	r := &Registry{
		fetcher: fetcher,
		ttl:     defaultTTL,
		now:     time.Now,
		cache:   make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) valid(ent *cacheEntry, now time.Time) bool {
	return r.ttl <= 0 || now.Before(ent.expiresAt)
}

func (r *Registry) cached(key string) (*manifest.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ent, ok := r.cache[key]
	if !ok || !r.valid(ent, r.now()) {
		return nil, false
	}
	return ent.profile.Clone(), true
}

// GetProfile returns a copy of the profile for name and env, fetching it on a miss or after expiry.
func (r *Registry) GetProfile(ctx context.Context, name, env string) (*manifest.Profile, error) {
	if err := validate(name, env); err != nil {
		return nil, err
	}
	key := name + ":" + env
	if p, ok := r.cached(key); ok {
		return p, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err, _ := r.sf.Do(key, func() (any, error) {
		fetchCtx, cancel := detachCancel(ctx)
		defer cancel()
		data, err := r.fetcher.Fetch(fetchCtx, name, env)
		if err != nil {
			return nil, err
		}
		p, err := manifest.ParseBytes(data)
		if err != nil {
			return nil, err
		}
		p.Environment = env
		expiresAt := time.Time{}
		if r.ttl > 0 {
			expiresAt = r.now().Add(r.ttl)
		}
		r.mu.Lock()
		r.cache[key] = &cacheEntry{profile: p, expiresAt: expiresAt}
		r.mu.Unlock()
		return p, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %q: %w", manifest.ErrProfileNotFound, name, err)
		}
		return nil, err
	}
	return v.(*manifest.Profile).Clone(), nil
}

// Evict removes every cached env variant of name.
func (r *Registry) Evict(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.cache {
		if n, _, _ := strings.Cut(key, ":"); n == name {
			delete(r.cache, key)
		}
	}
}

// EvictAll clears the cache.
func (r *Registry) EvictAll() {
	r.mu.Lock()
	r.cache = make(map[string]*cacheEntry)
	r.mu.Unlock()
}

// Close closes the Fetcher if it has a Close method (git.Fetcher removes its clone).
func (r *Registry) Close() error {
	if c, ok := r.fetcher.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
