// Package mount tracks the workspace root every path in this process is
// resolved against: a process-wide value set once at startup, with an
// optional per-request override carried on a request's context.
package mount

import (
	"context"
	"sync/atomic"
)

var root atomic.Pointer[string]

// Set establishes the process-wide workspace root. Called once during
// startup, before any request is served.
func Set(path string) {
	root.Store(&path)
}

// Get returns the process-wide workspace root, or "" if Set has not been
// called yet.
func Get() string {
	p := root.Load()
	if p == nil {
		return ""
	}
	return *p
}

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

var overrideKey = contextKey{}

// WithOverride returns a new context that resolves FromContext to path
// instead of the process-wide root. Used by tests and by any future
// multi-workspace handling without disturbing the single-root common case.
func WithOverride(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, overrideKey, path)
}

// FromContext returns the workspace root in effect for ctx: the per-request
// override if one was set, otherwise the process-wide root.
func FromContext(ctx context.Context) string {
	if override, ok := ctx.Value(overrideKey).(string); ok {
		return override
	}
	return Get()
}
