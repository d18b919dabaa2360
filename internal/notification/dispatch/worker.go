package dispatch

import (
	"context"
	"log/slog"
	"time"

	notifymetrics "filegov/internal/notification/metrics"
	"filegov/internal/notification/models"
	id "filegov/pkg/domain"
)

// Outbox is the dispatch view of the notification store.
type Outbox interface {
	FetchUndispatched(ctx context.Context, limit int) ([]*models.Entry, error)
	MarkDispatched(ctx context.Context, notificationID id.NotificationID, at time.Time) error
	CountUndispatched(ctx context.Context) (int64, error)
}

// Worker polls the outbox and hands entries to a Dispatcher.
type Worker struct {
	outbox       Outbox
	dispatcher   Dispatcher
	batchSize    int
	pollInterval time.Duration
	drainTimeout time.Duration
	metrics      *notifymetrics.Metrics
	logger       *slog.Logger
}

// Option configures the Worker.
type Option func(*Worker)

// WithBatchSize sets the maximum number of entries to fetch per poll.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithPollInterval sets the interval between polls.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithDrainTimeout bounds the final flush after the run context ends.
func WithDrainTimeout(d time.Duration) Option {
	return func(w *Worker) {
		w.drainTimeout = d
	}
}

func WithMetrics(m *notifymetrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(outbox Outbox, dispatcher Dispatcher, opts ...Option) *Worker {
	w := &Worker{
		outbox:       outbox,
		dispatcher:   dispatcher,
		batchSize:    100,
		pollInterval: time.Second,
		drainTimeout: 10 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx ends, then drains what is left within the drain
// timeout. It always returns nil so it can sit in an errgroup.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll dispatches one batch and returns how many entries were delivered.
// A failed entry stays queued for the next poll; the rest of the batch
// still goes out.
func (w *Worker) Poll(ctx context.Context) int {
	start := time.Now()

	entries, err := w.outbox.FetchUndispatched(ctx, w.batchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to fetch undispatched notifications", "error", err)
		if w.metrics != nil {
			w.metrics.IncrementDispatchFailure(w.dispatcher.Name())
		}
		return 0
	}
	if len(entries) == 0 {
		return 0
	}
	if w.metrics != nil {
		w.metrics.ObserveBatchSize(len(entries))
	}

	delivered := 0
	for _, entry := range entries {
		if w.deliver(ctx, entry) {
			delivered++
		}
	}

	if w.metrics != nil {
		w.metrics.ObservePollDuration(time.Since(start).Seconds())
	}
	return delivered
}

func (w *Worker) deliver(ctx context.Context, entry *models.Entry) bool {
	start := time.Now()
	if err := w.dispatcher.Dispatch(ctx, entry); err != nil {
		w.logger.ErrorContext(ctx, "failed to dispatch notification",
			"notification_id", entry.ID.String(),
			"transport", w.dispatcher.Name(),
			"error", err,
		)
		if w.metrics != nil {
			w.metrics.IncrementDispatchFailure(w.dispatcher.Name())
		}
		return false
	}
	if w.metrics != nil {
		w.metrics.ObserveDispatchDuration(time.Since(start).Seconds())
	}

	// Delivered but unmarked entries go out again; consumers dedupe on notification_id.
	if err := w.outbox.MarkDispatched(ctx, entry.ID, time.Now()); err != nil {
		w.logger.ErrorContext(ctx, "failed to mark notification dispatched",
			"notification_id", entry.ID.String(),
			"error", err,
		)
		return false
	}
	if w.metrics != nil {
		w.metrics.IncrementDispatched(w.dispatcher.Name())
	}
	return true
}

// drain keeps polling until the outbox is empty, nothing more can be
// delivered, or the drain timeout passes.
func (w *Worker) drain() {
	w.logger.Info("draining notification dispatch worker")
	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()

	for ctx.Err() == nil {
		if w.Poll(ctx) == 0 {
			return
		}
	}
}

// UpdateMetrics refreshes the pending depth gauge.
func (w *Worker) UpdateMetrics(ctx context.Context) error {
	if w.metrics == nil {
		return nil
	}
	n, err := w.outbox.CountUndispatched(ctx)
	if err != nil {
		return err
	}
	w.metrics.SetPendingDepth(n)
	return nil
}
