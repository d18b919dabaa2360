// Package requesttime pins a single "now" per HTTP request so that every
// timestamp written while serving it (created_at, resolved_at, deleted_at) agrees.
package requesttime

import (
	"net/http"
	"time"

	"filegov/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
