package user

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrUnknownRole    = errors.New("unknown role")
	ErrTenantMismatch = errors.New("platform roles carry no hospital; tenant roles require one")
	ErrRoleEscalation = errors.New("tenant admins cannot grant platform roles")
	ErrRoleForbidden  = errors.New("role is not permitted to perform this action")
	ErrSelfDeactivate = errors.New("users cannot deactivate themselves")
)
