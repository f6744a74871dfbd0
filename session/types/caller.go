//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import "context"

// callerKey binds the acquiring caller's identity into a context so sources
// can enforce their per-caller acquisition cap.
type callerKey struct{}

// WithCaller returns a context carrying id as the caller identity for
// subsequent Source.Acquire calls.
func WithCaller(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// CallerFromContext returns the caller identity bound to ctx, or "" when
// none is set. Anonymous callers share one identity and therefore one cap
// bucket.
func CallerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(callerKey{}).(string)
	return id
}
