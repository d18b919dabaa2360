package models

import (
	"time"

	actormodels "filegov/internal/actor/models"
	id "filegov/pkg/domain"
)

// Category says what kind of event an entry reports.
type Category string

const (
	CategoryTransferRequest Category = "TRANSFER_REQUEST"
	CategoryDeleteRequest   Category = "DELETE_REQUEST"
	CategoryRequestApproved Category = "REQUEST_APPROVED"
	CategoryRequestDenied   Category = "REQUEST_DENIED"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryTransferRequest, CategoryDeleteRequest, CategoryRequestApproved, CategoryRequestDenied:
		return true
	}
	return false
}

// Entry is one notification addressed to one actor. AudienceRoles and
// DepartmentID record which audience selected the recipient and are empty
// for entries addressed to a request's sender.
type Entry struct {
	ID            id.NotificationID  `json:"id"`
	RecipientID   id.ActorID         `json:"recipient_id"`
	AudienceRoles []actormodels.Role `json:"audience_roles,omitempty"`
	DepartmentID  *id.DepartmentID   `json:"department_id,omitempty"`
	Title         string             `json:"title"`
	Message       string             `json:"message"`
	Category      Category           `json:"category"`
	RequestID     id.RequestID       `json:"request_id"`
	IsRead        bool               `json:"is_read"`
	ReadAt        *time.Time         `json:"read_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	DispatchedAt  *time.Time         `json:"dispatched_at,omitempty"`
}

// MarkRead flips the entry to read once. Later calls keep the first ReadAt
// and report false.
func (e *Entry) MarkRead(now time.Time) bool {
	if e.IsRead {
		return false
	}
	e.IsRead = true
	e.ReadAt = &now
	return true
}

func (e *Entry) AddressedTo(actorID id.ActorID) bool {
	return e != nil && e.RecipientID == actorID
}

func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	if e.AudienceRoles != nil {
		c.AudienceRoles = append([]actormodels.Role(nil), e.AudienceRoles...)
	}
	if e.DepartmentID != nil {
		d := *e.DepartmentID
		c.DepartmentID = &d
	}
	if e.ReadAt != nil {
		t := *e.ReadAt
		c.ReadAt = &t
	}
	if e.DispatchedAt != nil {
		t := *e.DispatchedAt
		c.DispatchedAt = &t
	}
	return &c
}

// ListFilter narrows an actor's inbox.
type ListFilter struct {
	UnreadOnly bool
}

func (f ListFilter) Matches(e *Entry) bool {
	return !f.UnreadOnly || !e.IsRead
}
