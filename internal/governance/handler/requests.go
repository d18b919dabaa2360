package handler

import (
	"strings"

	"filegov/internal/governance/models"
	"filegov/internal/governance/service"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	strutil "filegov/pkg/platform/strings"
	"filegov/pkg/validation"
)

type CreateRequestRequest struct {
	Kind      string   `json:"kind" validate:"required,oneof=TRANSFER DELETE"`
	FileIDs   []string `json:"file_ids" validate:"required,min=1,max=200,dive,uuid"`
	Reason    string   `json:"reason" validate:"notblank,max=2000"`
	Recipient string   `json:"recipient,omitempty" validate:"omitempty,max=64"`
}

// Normalize canonicalises ids and handles and collapses duplicate files,
// keeping the first occurrence.
func (r *CreateRequestRequest) Normalize() {
	if r == nil {
		return
	}
	r.Kind = strings.ToUpper(strings.TrimSpace(r.Kind))
	r.FileIDs = strutil.DedupeAndTrimLower(r.FileIDs)
	r.Reason = strings.TrimSpace(r.Reason)
	r.Recipient = strings.ToLower(strings.TrimSpace(r.Recipient))
}

func (r *CreateRequestRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	if r.Kind == string(models.KindTransfer) && r.Recipient == "" {
		return dErrors.New(dErrors.CodeValidation, "recipient is required for TRANSFER")
	}
	return nil
}

func (r *CreateRequestRequest) toCommand(senderHandle string) (service.CreateRequestCommand, error) {
	fileIDs := make([]id.FileID, 0, len(r.FileIDs))
	for _, raw := range r.FileIDs {
		fileID, err := id.ParseFileID(raw)
		if err != nil {
			return service.CreateRequestCommand{}, dErrors.New(dErrors.CodeValidation, "file_ids must be valid uuids")
		}
		fileIDs = append(fileIDs, fileID)
	}
	return service.CreateRequestCommand{
		Kind:            models.Kind(r.Kind),
		FileIDs:         fileIDs,
		SenderHandle:    senderHandle,
		Reason:          r.Reason,
		RecipientHandle: r.Recipient,
	}, nil
}

// DenyRequest carries the denial comment. A blank comment is rejected by the
// service once the request is known to be pending.
type DenyRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

func (r *DenyRequest) Normalize() {
	if r == nil {
		return
	}
	r.Comment = strings.TrimSpace(r.Comment)
}

func (r *DenyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}
