package hospital

import "errors"

var (
	ErrHospitalNotFound = errors.New("hospital not found")
	ErrEmailTaken       = errors.New("contact email already registered")
	ErrNoPendingUpdate  = errors.New("hospital has no pending update")
	ErrRoleForbidden    = errors.New("role is not permitted to perform this action")
)
