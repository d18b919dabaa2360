package models

import (
	"strings"
	"time"

	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
)

// Role is a level in the organisational hierarchy.
// EMPLOYEE < HOD < ADMIN < SUPERADMIN.
type Role string

const (
	RoleEmployee   Role = "EMPLOYEE"
	RoleHOD        Role = "HOD"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleHOD, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsDepartmental reports whether the role is bound to a department.
func (r Role) IsDepartmental() bool {
	return r == RoleEmployee || r == RoleHOD
}

// IsAdministrative reports whether the role is ADMIN or SUPERADMIN.
func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown role: "+s)
	}
	return r, nil
}

type Department struct {
	ID        id.DepartmentID `json:"id"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"created_at"`
}

// Actor is an authenticated party that can raise or resolve governance requests.
type Actor struct {
	ID           id.ActorID       `json:"id"`
	Handle       string           `json:"handle"`
	DisplayName  string           `json:"display_name"`
	Role         Role             `json:"role"`
	DepartmentID *id.DepartmentID `json:"department_id,omitempty"`
	Active       bool             `json:"active"`
	CreatedAt    time.Time        `json:"created_at"`
}

// NewActor builds an active actor. EMPLOYEE and HOD need a department;
// administrative roles never carry one.
func NewActor(actorID id.ActorID, handle, displayName string, role Role, departmentID *id.DepartmentID, now time.Time) (*Actor, error) {
	handle = NormalizeHandle(handle)
	if handle == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "actor handle cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "actor role is invalid")
	}
	if role.IsDepartmental() && (departmentID == nil || departmentID.IsNil()) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "employee and HOD actors require a department")
	}
	if role.IsAdministrative() {
		departmentID = nil
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = handle
	}
	return &Actor{
		ID:           actorID,
		Handle:       handle,
		DisplayName:  strings.TrimSpace(displayName),
		Role:         role,
		DepartmentID: departmentID,
		Active:       true,
		CreatedAt:    now,
	}, nil
}

// Department returns the department the actor acts for, nil for administrative roles.
func (a *Actor) Department() *id.DepartmentID {
	if a == nil || a.Role.IsAdministrative() {
		return nil
	}
	return a.DepartmentID
}

// NormalizeHandle canonicalises a handle for lookups; handles are case-insensitive.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}
