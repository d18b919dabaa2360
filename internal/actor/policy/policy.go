// Package policy holds the hierarchy rules: who may approve whose request,
// who is auto-approved, who gets told about a new request, and who may
// see the audit log or manage the trash. Every other package asks here
// instead of re-deriving a rule.
package policy

import (
	"filegov/internal/actor/models"
	id "filegov/pkg/domain"
)

// CanApprove decides whether an approver may resolve a request raised by a
// sender with the given (snapshotted) role and department.
//
//	SUPERADMIN -> EMPLOYEE, HOD, ADMIN
//	ADMIN      -> HOD, EMPLOYEE
//	HOD        -> EMPLOYEE of the same department
//	EMPLOYEE   -> nobody
//
// Unknown roles on either side fail closed.
func CanApprove(approverRole models.Role, approverDepartmentID *id.DepartmentID, senderRole models.Role, senderDepartmentID *id.DepartmentID) bool {
	if !approverRole.IsValid() || !senderRole.IsValid() {
		return false
	}
	switch approverRole {
	case models.RoleSuperAdmin:
		return senderRole == models.RoleEmployee || senderRole == models.RoleHOD || senderRole == models.RoleAdmin
	case models.RoleAdmin:
		return senderRole == models.RoleEmployee || senderRole == models.RoleHOD
	case models.RoleHOD:
		return senderRole == models.RoleEmployee && id.SameDepartment(approverDepartmentID, senderDepartmentID)
	default:
		return false
	}
}

// ActorCanApprove applies CanApprove to a live actor. Inactive actors approve nothing.
func ActorCanApprove(approver *models.Actor, senderRole models.Role, senderDepartmentID *id.DepartmentID) bool {
	if approver == nil || !approver.Active {
		return false
	}
	return CanApprove(approver.Role, approver.Department(), senderRole, senderDepartmentID)
}

// IsAutoApprove reports whether requests from this role complete at creation.
func IsAutoApprove(senderRole models.Role) bool {
	return senderRole.IsAdministrative()
}

// Audience describes who is told about a new pending request: everyone
// holding one of GlobalRoles, plus actors with DepartmentRole in DepartmentID.
type Audience struct {
	GlobalRoles    []models.Role
	DepartmentRole models.Role
	DepartmentID   *id.DepartmentID
}

// HasDepartmentScope reports whether the departmental part of the audience applies.
func (a Audience) HasDepartmentScope() bool {
	return a.DepartmentRole != "" && a.DepartmentID != nil && !a.DepartmentID.IsNil()
}

// NotificationAudience is the single audience definition used by fan-out:
// all ADMIN and SUPERADMIN actors plus the HODs of the sender's department.
func NotificationAudience(senderDepartmentID *id.DepartmentID) Audience {
	return Audience{
		GlobalRoles:    []models.Role{models.RoleAdmin, models.RoleSuperAdmin},
		DepartmentRole: models.RoleHOD,
		DepartmentID:   senderDepartmentID,
	}
}

// CanViewAuditLog reports whether the role sees resolved requests of everyone.
func CanViewAuditLog(role models.Role) bool {
	return role.IsAdministrative()
}

// CanManageTrash reports whether the role may restore or purge trash records.
func CanManageTrash(role models.Role) bool {
	return role.IsAdministrative()
}

// TrashScope is the slice of the trash an actor may list.
type TrashScope struct {
	Allowed      bool
	DepartmentID *id.DepartmentID // nil with Allowed means every department
}

// TrashScopeFor returns the trash visibility of an actor: administrators see
// everything, an HOD sees their own department, everyone else sees nothing.
func TrashScopeFor(actor *models.Actor) TrashScope {
	if actor == nil || !actor.Active {
		return TrashScope{}
	}
	switch {
	case actor.Role.IsAdministrative():
		return TrashScope{Allowed: true}
	case actor.Role == models.RoleHOD && actor.DepartmentID != nil:
		return TrashScope{Allowed: true, DepartmentID: actor.DepartmentID}
	default:
		return TrashScope{}
	}
}
