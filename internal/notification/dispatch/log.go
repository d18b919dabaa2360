package dispatch

import (
	"context"
	"log/slog"

	"filegov/internal/notification/models"
)

// LogDispatcher writes entries to the structured log. It is the default
// transport when neither Kafka nor Redis is configured.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Name() string { return "log" }

func (d *LogDispatcher) Dispatch(ctx context.Context, entry *models.Entry) error {
	d.logger.InfoContext(ctx, "notification dispatched",
		"event", "notification_dispatched",
		"notification_id", entry.ID.String(),
		"recipient_id", entry.RecipientID.String(),
		"governance_request_id", entry.RequestID.String(),
		"category", string(entry.Category),
		"title", entry.Title,
	)
	return nil
}
