package models

import (
	"time"

	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
)

// ManagedFile is a file record in the live store. Raw bytes live elsewhere.
type ManagedFile struct {
	ID           id.FileID        `json:"id"`
	Name         string           `json:"name"`
	Size         int64            `json:"size"`
	MimeType     string           `json:"mime_type"`
	DepartmentID *id.DepartmentID `json:"department_id,omitempty"`
	OwnerID      id.ActorID       `json:"owner_id"`
	Disabled     bool             `json:"disabled"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func NewManagedFile(fileID id.FileID, name string, size int64, mimeType string, departmentID *id.DepartmentID, ownerID id.ActorID, now time.Time) (*ManagedFile, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "file name cannot be empty")
	}
	if size < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "file size cannot be negative")
	}
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "file owner is required")
	}
	return &ManagedFile{
		ID:           fileID,
		Name:         name,
		Size:         size,
		MimeType:     mimeType,
		DepartmentID: departmentID,
		OwnerID:      ownerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// TrashRecord is a snapshot of a deleted file. While it exists the file is
// not in the live store; restoring it is the only way back.
type TrashRecord struct {
	ID             id.TrashID       `json:"id"`
	OriginalFileID id.FileID        `json:"original_file_id"`
	Name           string           `json:"name"`
	Size           int64            `json:"size"`
	MimeType       string           `json:"mime_type"`
	FileDepartment *id.DepartmentID `json:"file_department_id,omitempty"`
	OwnerID        id.ActorID       `json:"owner_id"`
	Disabled       bool             `json:"disabled"`
	FileCreatedAt  time.Time        `json:"file_created_at"`
	FileUpdatedAt  time.Time        `json:"file_updated_at"`
	DeletedBy      string           `json:"deleted_by"`
	ApprovedBy     string           `json:"approved_by"`
	DepartmentID   *id.DepartmentID `json:"department_id,omitempty"`
	DepartmentName string           `json:"department_name,omitempty"`
	DeletedAt      time.Time        `json:"deleted_at"`
}

// NewTrashRecord snapshots a live file.
func NewTrashRecord(trashID id.TrashID, file *ManagedFile, deletedBy, approvedBy string, departmentID *id.DepartmentID, departmentName string, now time.Time) *TrashRecord {
	return &TrashRecord{
		ID:             trashID,
		OriginalFileID: file.ID,
		Name:           file.Name,
		Size:           file.Size,
		MimeType:       file.MimeType,
		FileDepartment: file.DepartmentID,
		OwnerID:        file.OwnerID,
		Disabled:       file.Disabled,
		FileCreatedAt:  file.CreatedAt,
		FileUpdatedAt:  file.UpdatedAt,
		DeletedBy:      deletedBy,
		ApprovedBy:     approvedBy,
		DepartmentID:   departmentID,
		DepartmentName: departmentName,
		DeletedAt:      now,
	}
}

// ToFile rebuilds the live file exactly as it was, under its original id.
func (r *TrashRecord) ToFile() *ManagedFile {
	return &ManagedFile{
		ID:           r.OriginalFileID,
		Name:         r.Name,
		Size:         r.Size,
		MimeType:     r.MimeType,
		DepartmentID: r.FileDepartment,
		OwnerID:      r.OwnerID,
		Disabled:     r.Disabled,
		CreatedAt:    r.FileCreatedAt,
		UpdatedAt:    r.FileUpdatedAt,
	}
}

// Disposition records how a trash record ended.
type Disposition string

const (
	DispositionRestored Disposition = "RESTORED"
	DispositionPurged   Disposition = "PURGED"
)

// TrashTombstone remembers a trash record after it is gone so that a later
// restore or purge can say what happened to it.
type TrashTombstone struct {
	TrashID        id.TrashID  `json:"trash_id"`
	OriginalFileID id.FileID   `json:"original_file_id"`
	Disposition    Disposition `json:"disposition"`
	At             time.Time   `json:"at"`
}

// TrashFilter narrows ListTrash. A nil DepartmentID lists every department.
type TrashFilter struct {
	DepartmentID *id.DepartmentID
}

// FileFilter narrows ListFiles. Set fields are alternatives: a file matches
// when it belongs to DepartmentID or is owned by OwnerID. The zero filter
// matches every file.
type FileFilter struct {
	DepartmentID *id.DepartmentID
	OwnerID      *id.ActorID
}

func (f FileFilter) Matches(file *ManagedFile) bool {
	if f.DepartmentID == nil && f.OwnerID == nil {
		return true
	}
	if f.DepartmentID != nil && id.SameDepartment(f.DepartmentID, file.DepartmentID) {
		return true
	}
	return f.OwnerID != nil && *f.OwnerID == file.OwnerID
}

func (f TrashFilter) Matches(rec *TrashRecord) bool {
	return f.DepartmentID == nil || id.SameDepartment(f.DepartmentID, rec.DepartmentID)
}
