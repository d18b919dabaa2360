package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"filegov/internal/governance/models"
	"filegov/internal/governance/service"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/platform/httputil"
	"filegov/pkg/requestcontext"
)

// Service defines the governance operations the handler exposes.
type Service interface {
	CreateRequest(ctx context.Context, cmd service.CreateRequestCommand) (*models.Request, error)
	ResolveRequest(ctx context.Context, cmd service.ResolveCommand) (*models.Request, error)
	GetRequest(ctx context.Context, requestID id.RequestID, viewerHandle string) (*models.Request, error)
	ListDashboard(ctx context.Context, viewerHandle string) (*models.DashboardView, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/requests", h.HandleCreateRequest)
	r.Get("/requests/{id}", h.HandleGetRequest)
	r.Post("/requests/{id}/approve", h.HandleApprove)
	r.Post("/requests/{id}/deny", h.HandleDeny)
	r.Get("/dashboard", h.HandleDashboard)
}

// HandleCreateRequest raises a transfer or delete request as the caller.
// Administrators get 201 with status COMPLETED; everyone else PENDING.
func (h *Handler) HandleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateRequestRequest](w, r, h.logger)
	if !ok {
		return
	}
	cmd, err := req.toCommand(handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.service.CreateRequest(ctx, cmd)
	if err != nil {
		h.logger.WarnContext(ctx, "create governance request failed", "error", err, "request_id", requestID, "sender", handle)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toRequestResponse(created))
}

func (h *Handler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqID, ok := h.parseRequestID(w, r)
	if !ok {
		return
	}

	req, err := h.service.GetRequest(ctx, reqID, handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, models.ActionApprove, "")
}

// HandleDeny resolves with the body's comment. The service rejects a blank
// comment only after it has found the request pending and approvable.
func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[DenyRequest](w, r, h.logger)
	if !ok {
		return
	}
	h.resolve(w, r, models.ActionDeny, req.Comment)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, action models.Action, comment string) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqID, ok := h.parseRequestID(w, r)
	if !ok {
		return
	}

	resolved, err := h.service.ResolveRequest(ctx, service.ResolveCommand{
		RequestID:      reqID,
		Action:         action,
		ApproverHandle: handle,
		DenialComment:  comment,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "resolve governance request failed",
			"error", err,
			"request_id", requestID,
			"governance_request_id", reqID.String(),
			"action", action,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(resolved))
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.ListDashboard(ctx, handle)
	if err != nil {
		h.logger.WarnContext(ctx, "dashboard failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDashboardResponse(view))
}

func (h *Handler) parseRequestID(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	reqID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request id"))
		return id.RequestID{}, false
	}
	return reqID, true
}
