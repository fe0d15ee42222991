// Package requestctx carries per-request metadata (correlation id, service,
// user, tier) through context.Context so that log lines and downstream calls
// can be tied back to one front-door request.
package requestctx

import "context"

// HeaderCorrelationID is the HTTP header used to propagate the correlation id
// between the router and the workers.
const HeaderCorrelationID = "X-Correlation-Id"

// MaxCorrelationIDLen bounds inbound correlation ids; longer values are
// replaced with a freshly minted one.
const MaxCorrelationIDLen = 128

// Context is the immutable per-request metadata snapshot.
type Context struct {
	CorrelationID string
	Service       string
	UserID        string
	Tier          string
	Operation     string
}

type ctxKey struct{}

// With returns a child context carrying rc.
func With(ctx context.Context, rc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// From extracts the request metadata, if present.
func From(ctx context.Context) (Context, bool) {
	rc, ok := ctx.Value(ctxKey{}).(Context)
	return rc, ok
}

// CorrelationID returns the correlation id from ctx, or "" if absent.
func CorrelationID(ctx context.Context) string {
	rc, _ := From(ctx)
	return rc.CorrelationID
}
