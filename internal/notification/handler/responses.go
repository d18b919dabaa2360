package handler

import (
	"time"

	"filegov/internal/notification/models"
)

type NotificationResponse struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Category  string     `json:"category"`
	RequestID string     `json:"request_id"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

func toResponse(e *models.Entry) *NotificationResponse {
	return &NotificationResponse{
		ID:        e.ID.String(),
		Title:     e.Title,
		Message:   e.Message,
		Category:  string(e.Category),
		RequestID: e.RequestID.String(),
		IsRead:    e.IsRead,
		ReadAt:    e.ReadAt,
		CreatedAt: e.CreatedAt,
	}
}

func toListResponse(entries []*models.Entry) *NotificationListResponse {
	out := make([]*NotificationResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toResponse(e))
	}
	return &NotificationListResponse{Notifications: out}
}
