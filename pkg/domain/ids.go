// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "filegov/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a FileID where a RequestID is expected.
type (
	ActorID        uuid.UUID
	DepartmentID   uuid.UUID
	FileID         uuid.UUID
	TrashID        uuid.UUID
	RequestID      uuid.UUID
	NotificationID uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseActorID(s string) (ActorID, error) {
	id, err := parseUUID(s, "actor ID")
	return ActorID(id), err
}

func ParseDepartmentID(s string) (DepartmentID, error) {
	id, err := parseUUID(s, "department ID")
	return DepartmentID(id), err
}

func ParseFileID(s string) (FileID, error) {
	id, err := parseUUID(s, "file ID")
	return FileID(id), err
}

func ParseTrashID(s string) (TrashID, error) {
	id, err := parseUUID(s, "trash record ID")
	return TrashID(id), err
}

func ParseRequestID(s string) (RequestID, error) {
	id, err := parseUUID(s, "request ID")
	return RequestID(id), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	id, err := parseUUID(s, "notification ID")
	return NotificationID(id), err
}

// String methods - for logging and debugging.

func (id ActorID) String() string        { return uuid.UUID(id).String() }
func (id DepartmentID) String() string   { return uuid.UUID(id).String() }
func (id FileID) String() string         { return uuid.UUID(id).String() }
func (id TrashID) String() string        { return uuid.UUID(id).String() }
func (id RequestID) String() string      { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id ActorID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id DepartmentID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id FileID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id TrashID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// SameDepartment reports whether two optional department references point at
// the same department. A missing department never matches anything.
func SameDepartment(a, b *DepartmentID) bool {
	if a == nil || b == nil || a.IsNil() || b.IsNil() {
		return false
	}
	return *a == *b
}

// FileIDStrings renders file ids for logs and SQL array parameters.
func FileIDStrings(ids []FileID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here; the service layer checks IsNil so that store
// lookups can still answer with a proper "not found".
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label+" format")
	}
	return id, nil
}
