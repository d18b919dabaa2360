package service

import (
	"log/slog"

	filesservice "filegov/internal/files/service"
	govmetrics "filegov/internal/governance/metrics"
	"filegov/internal/platform/tracer"
)

type serviceConfig struct {
	logger   *slog.Logger
	metrics  *govmetrics.Metrics
	notifier Notifier
	namer    filesservice.DepartmentNamer
	tracer   tracer.Tracer
}

// Option configures a Service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *govmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *serviceConfig) {
		c.notifier = n
	}
}

// WithDepartmentNamer sets where trash snapshots get department names from.
func WithDepartmentNamer(namer filesservice.DepartmentNamer) Option {
	return func(c *serviceConfig) {
		c.namer = namer
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *serviceConfig) {
		c.tracer = t
	}
}
