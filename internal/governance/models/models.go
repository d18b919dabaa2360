package models

import (
	"strings"
	"time"

	actormodels "filegov/internal/actor/models"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
)

// Kind discriminates the two request types. Everything but the side effect
// applied on approval is shared between them.
type Kind string

const (
	KindTransfer Kind = "TRANSFER"
	KindDelete   Kind = "DELETE"
)

func (k Kind) IsValid() bool {
	return k == KindTransfer || k == KindDelete
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "kind must be TRANSFER or DELETE")
	}
	return k, nil
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusDenied    Status = "DENIED"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusDenied
}

type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionDeny    Action = "DENY"
)

func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if a != ActionApprove && a != ActionDeny {
		return "", dErrors.New(dErrors.CodeValidation, "action must be APPROVE or DENY")
	}
	return a, nil
}

// Recipient is who receives custody of transferred files, as they were
// when the request was raised.
type Recipient struct {
	ActorID     id.ActorID `json:"actor_id"`
	Handle      string     `json:"handle"`
	DisplayName string     `json:"display_name"`
}

// Request is a transfer or delete awaiting, or past, a decision. The sender
// fields are snapshots and are never re-derived from the directory.
type Request struct {
	ID                 id.RequestID     `json:"id"`
	Kind               Kind             `json:"kind"`
	FileIDs            []id.FileID      `json:"file_ids"`
	SenderID           id.ActorID       `json:"sender_id"`
	SenderHandle       string           `json:"sender_handle"`
	SenderRole         actormodels.Role `json:"sender_role"`
	SenderDepartmentID *id.DepartmentID `json:"sender_department_id,omitempty"`
	Recipient          *Recipient       `json:"recipient,omitempty"`
	Reason             string           `json:"reason"`
	Status             Status           `json:"status"`
	DenialComment      string           `json:"denial_comment,omitempty"`
	ResolvedBy         string           `json:"resolved_by,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	ResolvedAt         *time.Time       `json:"resolved_at,omitempty"`
}

// NewRequest builds a PENDING request. File ids are deduplicated keeping the
// first occurrence; a DELETE drops any recipient.
func NewRequest(requestID id.RequestID, kind Kind, fileIDs []id.FileID, sender *actormodels.Actor, recipient *Recipient, reason string, now time.Time) (*Request, error) {
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "kind must be TRANSFER or DELETE")
	}
	if sender == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "sender is required")
	}
	files := DedupeFileIDs(fileIDs)
	if len(files) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one file is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	switch kind {
	case KindTransfer:
		if recipient == nil || recipient.ActorID.IsNil() {
			return nil, dErrors.New(dErrors.CodeValidation, "transfer requires a recipient")
		}
		if recipient.ActorID == sender.ID {
			return nil, dErrors.New(dErrors.CodeValidation, "cannot transfer files to yourself")
		}
	case KindDelete:
		recipient = nil
	}

	return &Request{
		ID:                 requestID,
		Kind:               kind,
		FileIDs:            files,
		SenderID:           sender.ID,
		SenderHandle:       sender.Handle,
		SenderRole:         sender.Role,
		SenderDepartmentID: sender.Department(),
		Recipient:          recipient,
		Reason:             reason,
		Status:             StatusPending,
		CreatedAt:          now,
	}, nil
}

func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}

// Complete moves a pending request to COMPLETED.
func (r *Request) Complete(resolvedBy string, now time.Time) error {
	if !r.IsPending() {
		return dErrors.New(dErrors.CodeConflict, "request is already "+strings.ToLower(string(r.Status)))
	}
	r.Status = StatusCompleted
	r.ResolvedBy = resolvedBy
	r.ResolvedAt = &now
	return nil
}

// AutoComplete marks a request from an administrative sender as completed at
// the moment it was created, resolved by the sender.
func (r *Request) AutoComplete() error {
	return r.Complete(r.SenderHandle, r.CreatedAt)
}

// Deny moves a pending request to DENIED. The comment is mandatory.
func (r *Request) Deny(resolvedBy, comment string, now time.Time) error {
	if !r.IsPending() {
		return dErrors.New(dErrors.CodeConflict, "request is already "+strings.ToLower(string(r.Status)))
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return dErrors.New(dErrors.CodeValidation, "a denial comment is required")
	}
	r.Status = StatusDenied
	r.DenialComment = comment
	r.ResolvedBy = resolvedBy
	r.ResolvedAt = &now
	return nil
}

// DedupeFileIDs collapses duplicates, keeping first occurrences in order.
func DedupeFileIDs(fileIDs []id.FileID) []id.FileID {
	seen := make(map[id.FileID]struct{}, len(fileIDs))
	out := make([]id.FileID, 0, len(fileIDs))
	for _, f := range fileIDs {
		if f.IsNil() {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// DashboardView is what one viewer sees of the request log.
type DashboardView struct {
	Sent               []*Request `json:"sent"`
	AwaitingMyApproval []*Request `json:"awaiting_my_approval"`
	AuditLog           []*Request `json:"audit_log"`
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	cp := *r
	cp.FileIDs = append([]id.FileID(nil), r.FileIDs...)
	if r.Recipient != nil {
		rc := *r.Recipient
		cp.Recipient = &rc
	}
	if r.SenderDepartmentID != nil {
		d := *r.SenderDepartmentID
		cp.SenderDepartmentID = &d
	}
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}
