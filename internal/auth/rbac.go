package auth

import (
	"github.com/campuscare/grievance-management/internal"
)

// Action enumerates everything the authorizer can be asked about.
type Action string

const (
	ActionReadOwn        Action = "read-own"
	ActionReadDepartment Action = "read-department"
	ActionReadAll        Action = "read-all"
	ActionWriteStatus    Action = "write-status"
	ActionWriteUser      Action = "write-user"
)

// ScopeKind narrows a query to what the caller may see.
type ScopeKind int

const (
	ScopeAll ScopeKind = iota
	ScopeDepartment
	ScopeOwn
)

// Scope is the filter a repository applies when listing or mutating
// complaints on behalf of a caller.
type Scope struct {
	Kind       ScopeKind
	Department string
	UserID     int64
}

// Authorize decides whether the actor may perform the action and, if so,
// how far their view reaches. Department scope comes from the authenticated
// identity only; handlers reject client-supplied departments that differ.
func Authorize(actor *User, action Action) (Scope, error) {
	if actor == nil {
		return Scope{}, internal.NewUnauthenticatedError("no authenticated user", internal.ErrCodeInvalidToken)
	}

	switch actor.Role {
	case RoleAdmin:
		switch action {
		case ActionReadAll, ActionReadDepartment, ActionReadOwn, ActionWriteStatus, ActionWriteUser:
			return Scope{Kind: ScopeAll}, nil
		}
	case RoleSubAdmin:
		switch action {
		case ActionReadDepartment, ActionWriteStatus, ActionWriteUser:
			return Scope{Kind: ScopeDepartment, Department: actor.Department}, nil
		case ActionReadOwn:
			return Scope{Kind: ScopeOwn, UserID: actor.ID}, nil
		case ActionReadAll:
			return Scope{}, internal.ErrForbidden
		}
	case RoleEmployee, RoleStudent:
		switch action {
		case ActionReadOwn:
			return Scope{Kind: ScopeOwn, UserID: actor.ID}, nil
		case ActionReadDepartment, ActionReadAll, ActionWriteStatus, ActionWriteUser:
			return Scope{}, internal.ErrForbidden
		}
	}

	return Scope{}, internal.ErrForbidden
}

// CanManageUser applies the user-management policy table: admins manage any
// non-admin account, sub-admins manage employees inside their own department.
func CanManageUser(actor *User, targetRole Role, targetDepartment string) error {
	switch actor.Role {
	case RoleAdmin:
		if targetRole == RoleAdmin {
			return internal.ErrForbidden
		}
		return nil
	case RoleSubAdmin:
		if targetRole != RoleEmployee {
			return internal.ErrForbidden
		}
		if targetDepartment != actor.Department {
			return internal.ErrDepartmentMismatch
		}
		return nil
	case RoleEmployee, RoleStudent:
		return internal.ErrForbidden
	}
	return internal.ErrForbidden
}

// Covers reports whether the scope admits a complaint owned by a user in
// ownerDepartment with ownerID.
func (s Scope) Covers(ownerID int64, ownerDepartment string) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeDepartment:
		return s.Department != "" && s.Department == ownerDepartment
	case ScopeOwn:
		return s.UserID == ownerID
	}
	return false
}
