package patient

import "errors"

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrMRDTaken        = errors.New("mrd already exists for this hospital")
	ErrInvalidCategory = errors.New("invalid patient category")
	ErrRoleForbidden   = errors.New("role is not permitted to perform this action")
)
