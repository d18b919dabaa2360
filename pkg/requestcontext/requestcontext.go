// Package requestcontext carries request-scoped values across layers:
// the request id, the authenticated actor handle, the client address, and the
// request time. Everything here is safe to call on a bare context.Background().
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	actorHandleKey struct{}
	clientIPKey    struct{}
	requestTimeKey struct{}
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request id or "" outside HTTP.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithActorHandle stores the authenticated actor handle taken from the bearer token subject.
func WithActorHandle(ctx context.Context, handle string) context.Context {
	return context.WithValue(ctx, actorHandleKey{}, handle)
}

func ActorHandle(ctx context.Context) string {
	v, _ := ctx.Value(actorHandleKey{}).(string)
	return v
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

// WithTime pins "now" for the rest of the call chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time, falling back to time.Now() for workers,
// CLI commands and tests that never went through the HTTP middleware.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
