package service

import (
	"context"
	"time"

	"filegov/internal/files/models"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/platform/sentinel"
)

// FileStore is the live file store.
// FindFile and DeleteFile return sentinel.ErrNotFound for missing files;
// UpdateOwner fails with sentinel.ErrNotFound if any file is missing.
type FileStore interface {
	CreateFile(ctx context.Context, file *models.ManagedFile) error
	FindFile(ctx context.Context, fileID id.FileID) (*models.ManagedFile, error)
	DeleteFile(ctx context.Context, fileID id.FileID) error
	UpdateOwner(ctx context.Context, fileIDs []id.FileID, ownerID id.ActorID, now time.Time) error
	ListFiles(ctx context.Context, filter models.FileFilter) ([]*models.ManagedFile, error)
}

// TrashStore holds trash records, unique by original file id, and tombstones.
type TrashStore interface {
	CreateTrashRecord(ctx context.Context, rec *models.TrashRecord) error
	FindTrashRecord(ctx context.Context, trashID id.TrashID) (*models.TrashRecord, error)
	FindTrashByOriginalFileID(ctx context.Context, fileID id.FileID) (*models.TrashRecord, error)
	DeleteTrashRecord(ctx context.Context, trashID id.TrashID) error
	ListTrash(ctx context.Context, filter models.TrashFilter) ([]*models.TrashRecord, error)
	SaveTombstone(ctx context.Context, tomb *models.TrashTombstone) error
	FindTombstone(ctx context.Context, trashID id.TrashID) (*models.TrashTombstone, error)
}

// DepartmentNamer resolves department names for trash snapshots.
type DepartmentNamer interface {
	DepartmentName(ctx context.Context, departmentID id.DepartmentID) (string, error)
}

func wrapFileErr(err error, action string) error {
	return dErrors.Translate(err, action,
		dErrors.Rule{Target: sentinel.ErrNotFound, Code: dErrors.CodeNotFound, Message: "file not found"})
}

func wrapTrashErr(err error, action string) error {
	return dErrors.Translate(err, action,
		dErrors.Rule{Target: sentinel.ErrNotFound, Code: dErrors.CodeNotFound, Message: "trash record not found"})
}
