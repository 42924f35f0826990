package remoteregistry

import "time"

// Option configures a Registry.
type Option func(*Registry)

// WithTTL sets how long a fetched profile is served before it is fetched again.
// Default is 5 minutes; d <= 0 keeps profiles until Evict.
func WithTTL(d time.Duration) Option {
	return func(r *Registry) {
		r.ttl = d
	}
}

// WithClock sets the time source for cache expiry. nil keeps time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}
