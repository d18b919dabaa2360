package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TrashOperations *prometheus.CounterVec
	TrashSize       prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		TrashOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "filegov_trash_operations_total",
			Help: "Trash lifecycle operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		TrashSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "filegov_trash_records",
			Help: "Trash records currently held, as of the last listing by an administrator",
		}),
	}
}

func (m *Metrics) IncrementTrashOperation(operation, outcome string) {
	m.TrashOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) SetTrashSize(n int) {
	m.TrashSize.Set(float64(n))
}
