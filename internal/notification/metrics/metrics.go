package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers both the inbox (fan-out, reads) and the dispatch outbox.
type Metrics struct {
	EntriesCreated *prometheus.CounterVec
	EntriesRead    prometheus.Counter

	PendingDepth     prometheus.Gauge
	Dispatched       *prometheus.CounterVec
	DispatchFailures *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	BatchSize        prometheus.Histogram
	PollDuration     prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		EntriesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filegov_notifications_created_total",
			Help: "Notification entries created by category",
		}, []string{"category"}),
		EntriesRead: promauto.NewCounter(prometheus.CounterOpts{
			Name: "filegov_notifications_read_total",
			Help: "Notification entries marked read for the first time",
		}),
		PendingDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "filegov_notification_outbox_pending",
			Help: "Notification entries not yet handed to a transport",
		}),
		Dispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filegov_notifications_dispatched_total",
			Help: "Notification entries delivered to a transport",
		}, []string{"transport"}),
		DispatchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filegov_notification_dispatch_failures_total",
			Help: "Failed notification deliveries; the entry is retried on the next poll",
		}, []string{"transport"}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "filegov_notification_dispatch_duration_seconds",
			Help:    "Time taken to hand one entry to the transport",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "filegov_notification_dispatch_batch_size",
			Help:    "Entries fetched per dispatch poll",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		PollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "filegov_notification_dispatch_poll_duration_seconds",
			Help:    "Time taken for each dispatch poll cycle",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementCreated(category string, n int) {
	m.EntriesCreated.WithLabelValues(category).Add(float64(n))
}

func (m *Metrics) IncrementRead() {
	m.EntriesRead.Inc()
}

func (m *Metrics) SetPendingDepth(n int64) {
	m.PendingDepth.Set(float64(n))
}

func (m *Metrics) IncrementDispatched(transport string) {
	m.Dispatched.WithLabelValues(transport).Inc()
}

func (m *Metrics) IncrementDispatchFailure(transport string) {
	m.DispatchFailures.WithLabelValues(transport).Inc()
}

func (m *Metrics) ObserveDispatchDuration(seconds float64) {
	m.DispatchDuration.Observe(seconds)
}

func (m *Metrics) ObserveBatchSize(n int) {
	m.BatchSize.Observe(float64(n))
}

func (m *Metrics) ObservePollDuration(seconds float64) {
	m.PollDuration.Observe(seconds)
}
