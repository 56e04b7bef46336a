package upload

import "errors"

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrFileNotFound    = errors.New("file not found")
	ErrUnsupportedType = errors.New("unsupported file type: only PDF and video uploads are accepted")
	ErrTooLateToCancel = errors.New("upload already committed, cancellation has no effect")
	ErrPipelineActive  = errors.New("a pipeline task is already running for this file")
)
