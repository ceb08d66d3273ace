// Package auth resolves the verified caller of a request from the managed
// auth service's session token.
package auth

import "context"

// Caller is a verified identity taken from a session token.
type Caller struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type contextKey struct{}

// WithCaller stores the caller on ctx.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, caller)
}

// CallerFrom returns the caller stored on ctx, if any.
func CallerFrom(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(contextKey{}).(Caller)
	if !ok || caller.ID == "" {
		return Caller{}, false
	}
	return caller, true
}
