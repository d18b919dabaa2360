package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsCreated  *prometheus.CounterVec
	RequestsResolved *prometheus.CounterVec
	ResolveConflicts prometheus.Counter
	TxLockWait       prometheus.Histogram
	NotifyFailures   *prometheus.CounterVec
	TimeToResolve    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filegov_requests_created_total",
			Help: "Governance requests created by kind and initial status",
		}, []string{"kind", "status"}),
		RequestsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filegov_requests_resolved_total",
			Help: "Governance requests resolved by kind and resulting status",
		}, []string{"kind", "status"}),
		ResolveConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "filegov_request_resolve_conflicts_total",
			Help: "Resolve attempts that lost to an earlier resolution",
		}),
		TxLockWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "filegov_request_lock_wait_seconds",
			Help:    "Time spent waiting for the per-request lock in the in-memory store",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		NotifyFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filegov_request_notify_failures_total",
			Help: "Notification fan-out failures that were logged and swallowed",
		}, []string{"trigger"}),
		TimeToResolve: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "filegov_request_resolve_duration_seconds",
			Help:    "Time from request creation to resolution",
			Buckets: prometheus.ExponentialBuckets(60, 4, 8),
		}),
	}
}

func (m *Metrics) IncrementCreated(kind, status string) {
	m.RequestsCreated.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) IncrementResolved(kind, status string) {
	m.RequestsResolved.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) IncrementResolveConflict() {
	m.ResolveConflicts.Inc()
}

func (m *Metrics) ObserveLockWait(seconds float64) {
	m.TxLockWait.Observe(seconds)
}

func (m *Metrics) IncrementNotifyFailure(trigger string) {
	m.NotifyFailures.WithLabelValues(trigger).Inc()
}

func (m *Metrics) ObserveTimeToResolve(seconds float64) {
	m.TimeToResolve.Observe(seconds)
}
