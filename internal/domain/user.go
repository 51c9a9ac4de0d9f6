package domain

import "context"

type userKey struct{}

// Caller is the identity resolved for a request.
type Caller struct {
	UserID string
	Email  string
}

// ContextWithCaller stores the resolved identity on ctx.
func ContextWithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, userKey{}, c)
}

// CallerFromContext returns the identity stored by ContextWithCaller.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(userKey{}).(Caller)
	if !ok || c.UserID == "" {
		return Caller{}, false
	}
	return c, true
}
