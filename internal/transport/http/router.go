package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"filegov/internal/platform/health"
	"filegov/pkg/platform/middleware/auth"
	"filegov/pkg/platform/middleware/request"
	"filegov/pkg/platform/middleware/requesttime"
	"filegov/pkg/validation"
)

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// RouterConfig collects what the router mounts. Handlers in Protected sit
// behind bearer authentication; health and metrics do not.
type RouterConfig struct {
	Logger         *slog.Logger
	Validator      auth.JWTValidator
	Health         *health.Handler
	Protected      []Registrar
	RequestTimeout time.Duration
	Metrics        *request.Metrics
}

// NewRouter builds the chi router with the shared middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.LatencyMiddleware(cfg.Metrics))
	if cfg.RequestTimeout > 0 {
		r.Use(request.Timeout(cfg.RequestTimeout))
	}

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(request.BodyLimit(validation.MaxBodySize))
		r.Use(request.ContentTypeJSON)
		r.Use(auth.RequireAuth(cfg.Validator, cfg.Logger))
		for _, h := range cfg.Protected {
			h.Register(r)
		}
	})

	return r
}
