// Package dispatch hands stored notification entries to an external
// transport. Delivery is at-least-once and best effort: the inbox in the
// notification store stays the source of truth whatever happens here.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"filegov/internal/notification/models"
)

// Dispatcher delivers one entry to a transport. Implementations must be
// safe for concurrent use; a returned error leaves the entry queued.
type Dispatcher interface {
	Dispatch(ctx context.Context, entry *models.Entry) error
	Name() string
}

// Event is the wire form shared by every transport.
type Event struct {
	NotificationID string    `json:"notification_id"`
	RecipientID    string    `json:"recipient_id"`
	RequestID      string    `json:"request_id"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewEvent(e *models.Entry) Event {
	return Event{
		NotificationID: e.ID.String(),
		RecipientID:    e.RecipientID.String(),
		RequestID:      e.RequestID.String(),
		Category:       string(e.Category),
		Title:          e.Title,
		Message:        e.Message,
		CreatedAt:      e.CreatedAt,
	}
}

func encode(e *models.Entry) ([]byte, error) {
	return json.Marshal(NewEvent(e))
}
