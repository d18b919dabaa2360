package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"filegov/internal/files/models"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/platform/httputil"
	"filegov/pkg/requestcontext"
)

// Service is the files and trash surface the handler needs.
type Service interface {
	ListTrash(ctx context.Context, viewerHandle string) ([]*models.TrashRecord, error)
	RestoreTrash(ctx context.Context, actorHandle string, trashID id.TrashID) (*models.ManagedFile, error)
	PurgeTrash(ctx context.Context, actorHandle string, trashID id.TrashID) error
	ListFiles(ctx context.Context, viewerHandle string) ([]*models.ManagedFile, error)
	GetFile(ctx context.Context, viewerHandle string, fileID id.FileID) (*models.ManagedFile, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/files", h.HandleListFiles)
	r.Get("/files/{id}", h.HandleGetFile)
	r.Get("/trash", h.HandleListTrash)
	r.Post("/trash/{id}/restore", h.HandleRestoreTrash)
	r.Delete("/trash/{id}", h.HandlePurgeTrash)
}

// HandleListTrash lists the trash records visible to the caller.
func (h *Handler) HandleListTrash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.ListTrash(ctx, handle)
	if err != nil {
		h.logger.WarnContext(ctx, "list trash failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTrashListResponse(records))
}

func (h *Handler) HandleRestoreTrash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	trashID, err := id.ParseTrashID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid trash id"))
		return
	}

	file, err := h.service.RestoreTrash(ctx, handle, trashID)
	if err != nil {
		h.logger.WarnContext(ctx, "restore trash failed", "error", err, "request_id", requestID, "trash_id", trashID.String())
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toFileResponse(file))
}

// HandlePurgeTrash destroys a trash record. Irreversible.
func (h *Handler) HandlePurgeTrash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	trashID, err := id.ParseTrashID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid trash id"))
		return
	}

	if err := h.service.PurgeTrash(ctx, handle, trashID); err != nil {
		h.logger.WarnContext(ctx, "purge trash failed", "error", err, "request_id", requestID, "trash_id", trashID.String())
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	files, err := h.service.ListFiles(ctx, handle)
	if err != nil {
		h.logger.WarnContext(ctx, "list files failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toFileListResponse(files))
}

func (h *Handler) HandleGetFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, err := httputil.RequireActorHandle(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	fileID, err := id.ParseFileID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid file id"))
		return
	}

	file, err := h.service.GetFile(ctx, handle, fileID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toFileResponse(file))
}
