package service

import (
	"log/slog"
	"time"

	notifymetrics "filegov/internal/notification/metrics"
)

type serviceConfig struct {
	logger  *slog.Logger
	metrics *notifymetrics.Metrics
	clock   func() time.Time
}

// Option configures a Service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *notifymetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *serviceConfig) {
		c.clock = clock
	}
}
