package handler

import (
	"time"

	"filegov/internal/files/models"
	id "filegov/pkg/domain"
)

type FileResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mime_type"`
	DepartmentID string    `json:"department_id,omitempty"`
	OwnerID      string    `json:"owner_id"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type FileListResponse struct {
	Files []*FileResponse `json:"files"`
}

type TrashResponse struct {
	ID             string    `json:"id"`
	OriginalFileID string    `json:"original_file_id"`
	Name           string    `json:"name"`
	Size           int64     `json:"size"`
	MimeType       string    `json:"mime_type"`
	OwnerID        string    `json:"owner_id"`
	DeletedBy      string    `json:"deleted_by"`
	ApprovedBy     string    `json:"approved_by"`
	DepartmentID   string    `json:"department_id,omitempty"`
	DepartmentName string    `json:"department_name,omitempty"`
	DeletedAt      time.Time `json:"deleted_at"`
}

type TrashListResponse struct {
	Records []*TrashResponse `json:"records"`
}

func toFileResponse(f *models.ManagedFile) *FileResponse {
	return &FileResponse{
		ID:           f.ID.String(),
		Name:         f.Name,
		Size:         f.Size,
		MimeType:     f.MimeType,
		DepartmentID: departmentString(f.DepartmentID),
		OwnerID:      f.OwnerID.String(),
		Disabled:     f.Disabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func toFileListResponse(files []*models.ManagedFile) *FileListResponse {
	out := make([]*FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	return &FileListResponse{Files: out}
}

func toTrashResponse(rec *models.TrashRecord) *TrashResponse {
	return &TrashResponse{
		ID:             rec.ID.String(),
		OriginalFileID: rec.OriginalFileID.String(),
		Name:           rec.Name,
		Size:           rec.Size,
		MimeType:       rec.MimeType,
		OwnerID:        rec.OwnerID.String(),
		DeletedBy:      rec.DeletedBy,
		ApprovedBy:     rec.ApprovedBy,
		DepartmentID:   departmentString(rec.DepartmentID),
		DepartmentName: rec.DepartmentName,
		DeletedAt:      rec.DeletedAt,
	}
}

func toTrashListResponse(records []*models.TrashRecord) *TrashListResponse {
	out := make([]*TrashResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toTrashResponse(rec))
	}
	return &TrashListResponse{Records: out}
}

func departmentString(d *id.DepartmentID) string {
	if d == nil {
		return ""
	}
	return d.String()
}
