package service

import (
	"context"
	"errors"
	"log/slog"

	actormodels "filegov/internal/actor/models"
	"filegov/internal/actor/policy"
	filesmetrics "filegov/internal/files/metrics"
	"filegov/internal/files/models"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/platform/sentinel"
	"filegov/pkg/requestcontext"
)

// ActorLookup resolves the caller.
type ActorLookup interface {
	FindByHandle(ctx context.Context, handle string) (*actormodels.Actor, error)
}

// Service exposes the file catalogue and the trash to callers. Restore and
// purge run inside a StoreTx through a Lifecycle.
type Service struct {
	files   FileStore
	trash   TrashStore
	tx      StoreTx
	actors  ActorLookup
	namer   DepartmentNamer
	logger  *slog.Logger
	metrics *filesmetrics.Metrics
}

func New(files FileStore, trash TrashStore, tx StoreTx, actors ActorLookup, opts ...Option) *Service {
	cfg := serviceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		files:   files,
		trash:   trash,
		tx:      tx,
		actors:  actors,
		namer:   cfg.namer,
		logger:  logger,
		metrics: cfg.metrics,
	}
}

// ListTrash returns the slice of the trash the viewer may see, newest first.
func (s *Service) ListTrash(ctx context.Context, viewerHandle string) ([]*models.TrashRecord, error) {
	viewer, err := s.resolveActor(ctx, viewerHandle)
	if err != nil {
		return nil, err
	}
	scope := policy.TrashScopeFor(viewer)
	if !scope.Allowed {
		return nil, dErrors.New(dErrors.CodeForbidden, "trash is not visible to this actor")
	}

	records, err := s.lifecycle(TxStores{Files: s.files, Trash: s.trash}).
		ListTrash(ctx, models.TrashFilter{DepartmentID: scope.DepartmentID})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil && scope.DepartmentID == nil {
		s.metrics.SetTrashSize(len(records))
	}
	return records, nil
}

// RestoreTrash brings a trashed file back under its original id.
func (s *Service) RestoreTrash(ctx context.Context, actorHandle string, trashID id.TrashID) (*models.ManagedFile, error) {
	actor, err := s.requireTrashManager(ctx, actorHandle)
	if err != nil {
		return nil, err
	}

	var restored *models.ManagedFile
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores TxStores) error {
		var txErr error
		restored, txErr = s.lifecycle(stores).Restore(ctx, trashID)
		return txErr
	})
	s.observe("restore", err)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "trash record restored",
		"event", "trash_restored",
		"log_type", "audit",
		"trash_id", trashID.String(),
		"file_id", restored.ID.String(),
		"actor", actor.Handle,
		"request_id", requestcontext.RequestID(ctx),
	)
	return restored, nil
}

// PurgeTrash destroys a trash record for good.
func (s *Service) PurgeTrash(ctx context.Context, actorHandle string, trashID id.TrashID) error {
	actor, err := s.requireTrashManager(ctx, actorHandle)
	if err != nil {
		return err
	}

	var purged *models.TrashRecord
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores TxStores) error {
		var txErr error
		purged, txErr = s.lifecycle(stores).Purge(ctx, trashID)
		return txErr
	})
	s.observe("purge", err)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "trash record purged",
		"event", "trash_purged",
		"log_type", "audit",
		"trash_id", trashID.String(),
		"file_id", purged.OriginalFileID.String(),
		"actor", actor.Handle,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// ListFiles lists live files: administrators see all of them, everyone else
// sees their department's files plus any they own elsewhere.
func (s *Service) ListFiles(ctx context.Context, viewerHandle string) ([]*models.ManagedFile, error) {
	viewer, err := s.resolveActor(ctx, viewerHandle)
	if err != nil {
		return nil, err
	}
	filter := models.FileFilter{}
	if !viewer.Role.IsAdministrative() {
		filter.DepartmentID = viewer.DepartmentID
		filter.OwnerID = &viewer.ID
	}
	files, err := s.files.ListFiles(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list files")
	}
	return files, nil
}

// GetFile returns one live file if the viewer may see it.
func (s *Service) GetFile(ctx context.Context, viewerHandle string, fileID id.FileID) (*models.ManagedFile, error) {
	viewer, err := s.resolveActor(ctx, viewerHandle)
	if err != nil {
		return nil, err
	}
	file, err := s.files.FindFile(ctx, fileID)
	if err != nil {
		return nil, wrapFileErr(err, "failed to load file")
	}
	if !canViewFile(viewer, file) {
		return nil, dErrors.New(dErrors.CodeNotFound, "file not found")
	}
	return file, nil
}

func canViewFile(viewer *actormodels.Actor, file *models.ManagedFile) bool {
	switch {
	case viewer.Role.IsAdministrative():
		return true
	case file.OwnerID == viewer.ID:
		return true
	default:
		return id.SameDepartment(viewer.DepartmentID, file.DepartmentID)
	}
}

func (s *Service) lifecycle(stores TxStores) *Lifecycle {
	return NewLifecycle(stores.Files, stores.Trash, s.namer, s.logger)
}

func (s *Service) resolveActor(ctx context.Context, handle string) (*actormodels.Actor, error) {
	actor, err := s.actors.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "actor is not recognised")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve actor")
	}
	if !actor.Active {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor is inactive")
	}
	return actor, nil
}

func (s *Service) requireTrashManager(ctx context.Context, handle string) (*actormodels.Actor, error) {
	actor, err := s.resolveActor(ctx, handle)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageTrash(actor.Role) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only administrators may restore or purge trash")
	}
	return actor, nil
}

func (s *Service) observe(operation string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	s.metrics.IncrementTrashOperation(operation, outcome)
}
