package document

import "errors"

var (
	ErrFileNotFound       = errors.New("file not found")
	ErrObjectMissing      = errors.New("archived object missing from store")
	ErrPipelineIncomplete = errors.New("upload pipeline has not completed")
	ErrNotConfirmed       = errors.New("file is not confirmed")
	ErrNotDraft           = errors.New("file is not a draft")
	ErrColdStorage        = errors.New("object is in cold storage, restore it first")
	ErrDownloadQuota      = errors.New("download request limit reached for this file")
	ErrDeletionRequested  = errors.New("deletion already requested")
	ErrNoDeletionRequest  = errors.New("no deletion request on this file")
	ErrRoleForbidden      = errors.New("role is not permitted to perform this action")
)
