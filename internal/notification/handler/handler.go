package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"filegov/internal/notification/models"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/platform/httputil"
	"filegov/pkg/requestcontext"
)

// Service is the inbox surface the handler needs.
type Service interface {
	ListForActor(ctx context.Context, handle string, unreadOnly bool) ([]*models.Entry, error)
	MarkRead(ctx context.Context, handle string, notificationID id.NotificationID) (*models.Entry, error)
	UnreadCount(ctx context.Context, handle string) (int, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.HandleList)
	r.Get("/notifications/unread-count", h.HandleUnreadCount)
	r.Post("/notifications/{id}/read", h.HandleMarkRead)
}

// HandleList returns the caller's notifications; ?unread=true limits it to unread ones.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	unreadOnly := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		unreadOnly, err = strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unread must be true or false"))
			return
		}
	}

	entries, err := h.service.ListForActor(ctx, handle, unreadOnly)
	if err != nil {
		h.logger.WarnContext(ctx, "list notifications failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toListResponse(entries))
}

func (h *Handler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	n, err := h.service.UnreadCount(ctx, handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &UnreadCountResponse{Unread: n})
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid notification id"))
		return
	}

	entry, err := h.service.MarkRead(ctx, handle, notificationID)
	if err != nil {
		h.logger.WarnContext(ctx, "mark notification read failed", "error", err, "request_id", requestID, "notification_id", notificationID.String())
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(entry))
}
