package service

import (
	"log/slog"

	filesmetrics "filegov/internal/files/metrics"
)

type serviceConfig struct {
	logger  *slog.Logger
	metrics *filesmetrics.Metrics
	namer   DepartmentNamer
}

// Option configures a Service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *filesmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithDepartmentNamer sets where trash snapshots get department names from.
func WithDepartmentNamer(namer DepartmentNamer) Option {
	return func(c *serviceConfig) {
		c.namer = namer
	}
}
