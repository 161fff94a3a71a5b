package context

import (
	"context"
)

// CallerContext contains authenticated caller information attached by the
// bearer-token middleware.
type CallerContext struct {
	Subject string
	Scopes  []string
}

type callerContextKey struct{}

// WithCaller adds CallerContext to context.
func WithCaller(ctx context.Context, caller *CallerContext) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// GetCaller returns CallerContext from context.
func GetCaller(ctx context.Context) *CallerContext {
	if v, ok := ctx.Value(callerContextKey{}).(*CallerContext); ok {
		return v
	}
	return nil
}

// GetSubject returns the authenticated subject from context or empty string.
func GetSubject(ctx context.Context) string {
	if c := GetCaller(ctx); c != nil {
		return c.Subject
	}
	return ""
}

// HasScope checks if the caller carries a specific scope.
func HasScope(ctx context.Context, scope string) bool {
	c := GetCaller(ctx)
	if c == nil {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
