package toolround

import "context"

type exchangeIDKey struct{}

// WithExchangeID returns a context carrying the exchange id.
// Run sets it for every backend and tool call it makes.
func WithExchangeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, exchangeIDKey{}, id)
}

// ExchangeIDFromContext returns the exchange id set by Run, if any.
func ExchangeIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(exchangeIDKey{}).(string)
	return id, ok && id != ""
}
