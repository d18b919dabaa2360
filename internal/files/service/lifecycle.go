package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"filegov/internal/files/models"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/platform/sentinel"
	"filegov/pkg/requestcontext"
)

// Lifecycle moves files between the live store and the trash. It works on
// whatever stores it is given, so callers bind it to their transaction.
type Lifecycle struct {
	files  FileStore
	trash  TrashStore
	namer  DepartmentNamer
	logger *slog.Logger
}

func NewLifecycle(files FileStore, trash TrashStore, namer DepartmentNamer, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{files: files, trash: trash, namer: namer, logger: logger}
}

// MoveInput describes one approved deletion.
type MoveInput struct {
	FileIDs      []id.FileID
	DeletedBy    string
	ApprovedBy   string
	DepartmentID *id.DepartmentID
}

// MoveResult reports what a batch did. Skipped files were already in the trash.
type MoveResult struct {
	Moved   []*models.TrashRecord
	Skipped []id.FileID
}

// BatchError lists the files a batch could not move. Files moved before the
// failure stay moved.
type BatchError struct {
	Failed []id.FileID
	Causes map[id.FileID]error
}

func (e *BatchError) Error() string {
	ids := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		ids[i] = f.String()
	}
	return fmt.Sprintf("move to trash failed for %d file(s): %s", len(e.Failed), strings.Join(ids, ", "))
}

var errNotLive = errors.New("file is not live")

// MoveToTrash snapshots each file into the trash and then removes it from
// the live store. The trash record is written first and keyed by the
// original file id, so a retry after a crash between the two steps finds
// the record, reuses it and finishes the delete.
func (l *Lifecycle) MoveToTrash(ctx context.Context, in MoveInput) (*MoveResult, error) {
	result := &MoveResult{}
	var batch *BatchError

	for _, fileID := range in.FileIDs {
		rec, err := l.moveOne(ctx, fileID, in)
		switch {
		case err != nil:
			if batch == nil {
				batch = &BatchError{Causes: make(map[id.FileID]error)}
			}
			batch.Failed = append(batch.Failed, fileID)
			batch.Causes[fileID] = err
			l.logger.WarnContext(ctx, "file could not be moved to trash",
				"file_id", fileID.String(),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		case rec == nil:
			result.Skipped = append(result.Skipped, fileID)
		default:
			result.Moved = append(result.Moved, rec)
		}
	}

	if batch != nil {
		code := dErrors.CodeConflict
		for _, cause := range batch.Causes {
			if !errors.Is(cause, errNotLive) {
				code = dErrors.CodeInternal
				break
			}
		}
		return result, dErrors.Wrap(batch, code, batch.Error())
	}
	return result, nil
}

// moveOne returns nil, nil when the file is already in the trash.
func (l *Lifecycle) moveOne(ctx context.Context, fileID id.FileID, in MoveInput) (*models.TrashRecord, error) {
	file, err := l.files.FindFile(ctx, fileID)
	if errors.Is(err, sentinel.ErrNotFound) {
		if _, terr := l.trash.FindTrashByOriginalFileID(ctx, fileID); terr == nil {
			return nil, nil
		} else if !errors.Is(terr, sentinel.ErrNotFound) {
			return nil, terr
		}
		return nil, errNotLive
	}
	if err != nil {
		return nil, err
	}

	rec, err := l.trash.FindTrashByOriginalFileID(ctx, fileID)
	switch {
	case err == nil:
		l.logger.InfoContext(ctx, "completing interrupted trash move",
			"file_id", fileID.String(),
			"trash_id", rec.ID.String(),
		)
	case errors.Is(err, sentinel.ErrNotFound):
		departmentID := in.DepartmentID
		if departmentID == nil {
			departmentID = file.DepartmentID
		}
		rec = models.NewTrashRecord(
			id.TrashID(uuid.New()),
			file,
			in.DeletedBy,
			in.ApprovedBy,
			departmentID,
			l.departmentName(ctx, departmentID),
			requestcontext.Now(ctx),
		)
		if err := l.trash.CreateTrashRecord(ctx, rec); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := l.files.DeleteFile(ctx, fileID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	return rec, nil
}

func (l *Lifecycle) departmentName(ctx context.Context, departmentID *id.DepartmentID) string {
	if l.namer == nil || departmentID == nil {
		return ""
	}
	name, err := l.namer.DepartmentName(ctx, *departmentID)
	if err != nil {
		l.logger.WarnContext(ctx, "department name lookup failed",
			"department_id", departmentID.String(),
			"error", err,
		)
		return ""
	}
	return name
}

// Restore recreates the file under its original id and drops the record.
func (l *Lifecycle) Restore(ctx context.Context, trashID id.TrashID) (*models.ManagedFile, error) {
	rec, err := l.trash.FindTrashRecord(ctx, trashID)
	if err != nil {
		return nil, l.missingRecordErr(ctx, trashID, err)
	}

	if _, err := l.files.FindFile(ctx, rec.OriginalFileID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("a live file with id %s already exists", rec.OriginalFileID))
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, wrapFileErr(err, "failed to check live file")
	}

	file := rec.ToFile()
	if err := l.files.CreateFile(ctx, file); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("a live file with id %s already exists", rec.OriginalFileID))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore file")
	}
	if err := l.trash.DeleteTrashRecord(ctx, trashID); err != nil {
		return nil, wrapTrashErr(err, "failed to delete trash record")
	}
	if err := l.trash.SaveTombstone(ctx, &models.TrashTombstone{
		TrashID:        trashID,
		OriginalFileID: rec.OriginalFileID,
		Disposition:    models.DispositionRestored,
		At:             requestcontext.Now(ctx),
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record restore")
	}
	return file, nil
}

// Purge destroys a trash record permanently.
func (l *Lifecycle) Purge(ctx context.Context, trashID id.TrashID) (*models.TrashRecord, error) {
	rec, err := l.trash.FindTrashRecord(ctx, trashID)
	if err != nil {
		return nil, l.missingRecordErr(ctx, trashID, err)
	}
	if err := l.trash.DeleteTrashRecord(ctx, trashID); err != nil {
		return nil, wrapTrashErr(err, "failed to purge trash record")
	}
	if err := l.trash.SaveTombstone(ctx, &models.TrashTombstone{
		TrashID:        trashID,
		OriginalFileID: rec.OriginalFileID,
		Disposition:    models.DispositionPurged,
		At:             requestcontext.Now(ctx),
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record purge")
	}
	return rec, nil
}

// ListTrash lists records newest first.
func (l *Lifecycle) ListTrash(ctx context.Context, filter models.TrashFilter) ([]*models.TrashRecord, error) {
	records, err := l.trash.ListTrash(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list trash")
	}
	return records, nil
}

// missingRecordErr turns a failed lookup into a NotFound whose message says
// whether the record was purged, restored, or never existed.
func (l *Lifecycle) missingRecordErr(ctx context.Context, trashID id.TrashID, lookupErr error) error {
	if !errors.Is(lookupErr, sentinel.ErrNotFound) {
		return wrapTrashErr(lookupErr, "failed to load trash record")
	}
	tomb, err := l.trash.FindTombstone(ctx, trashID)
	switch {
	case err == nil && tomb.Disposition == models.DispositionPurged:
		return dErrors.New(dErrors.CodeNotFound, "trash record was already purged")
	case err == nil && tomb.Disposition == models.DispositionRestored:
		return dErrors.New(dErrors.CodeNotFound, "trash record was already restored")
	case err == nil || errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "trash record never existed")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trash tombstone")
	}
}
