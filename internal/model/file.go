package model

import (
	"time"

	"github.com/google/uuid"
)

type FileStatus string

const (
	FileStatusDraft     FileStatus = "draft"
	FileStatusConfirmed FileStatus = "confirmed"
)

// Pipeline stages in order. completed_with_error is terminal and only
// set by the auto-confirm sweep after exhausting retries.
type FileStage string

const (
	StageQueued             FileStage = "queued"
	StageCompressing        FileStage = "compressing"
	StageAnalyzing          FileStage = "analyzing"
	StageEncrypting         FileStage = "encrypting"
	StageUploading          FileStage = "uploading"
	StageCompleted          FileStage = "completed"
	StageCompletedWithError FileStage = "completed_with_error"
	StageFailed             FileStage = "failed"
	StageCancelled          FileStage = "cancelled"
)

type DeletionStep string

const (
	DeletionNone             DeletionStep = "none"
	DeletionRequested        DeletionStep = "requested"
	DeletionHospitalApproved DeletionStep = "hospital_approved"
)

type File struct {
	Base
	PatientID uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	Patient   *Patient  `gorm:"foreignKey:PatientID" json:"-"`

	// HospitalID is denormalized so the tenant guard never needs a join.
	HospitalID uuid.UUID `gorm:"type:uuid;not null;index" json:"hospital_id"`

	Key          string `gorm:"size:1024;index" json:"key"`
	Path         string `gorm:"size:1024" json:"path"`
	SizeBytes    int64  `json:"size_bytes"`
	PageCount    int    `json:"page_count"`
	OriginalName string `gorm:"size:512" json:"original_name"`

	Status   FileStatus `gorm:"size:20;not null;default:draft;index" json:"status"`
	Stage    FileStage  `gorm:"size:30;not null;default:queued" json:"stage"`
	Progress int        `gorm:"default:0" json:"progress"`

	// Pricing snapshot copied from the hospital at creation, immutable
	// afterwards.
	BasePrice      float64 `json:"base_price"`
	IncludedPages  int     `json:"included_pages"`
	ExtraPagePrice float64 `json:"extra_page_price"`

	OCRText    string `gorm:"type:text" json:"-"`
	Tags       string `gorm:"size:512" json:"tags"`
	Searchable bool   `gorm:"default:false;index" json:"searchable"`

	DeletionStep    DeletionStep `gorm:"size:30;not null;default:none" json:"deletion_step"`
	DeletionPending bool         `gorm:"default:false" json:"deletion_pending"`

	DownloadRequests int        `gorm:"default:0" json:"download_requests"`
	IsPaid           bool       `gorm:"default:false;index" json:"is_paid"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`

	ConfirmAttempts int `gorm:"default:0" json:"-"`

	UploadedBy *uuid.UUID `gorm:"type:uuid" json:"uploaded_by,omitempty"`
}

// Cost prices the file from its snapshot: base price plus per-page charge
// for pages beyond the included allowance.
func (f *File) Cost() float64 {
	extra := f.PageCount - f.IncludedPages
	if extra < 0 {
		extra = 0
	}
	return f.BasePrice + float64(extra)*f.ExtraPagePrice
}

// Terminal reports whether the pipeline has stopped moving this file.
func (s FileStage) Terminal() bool {
	switch s {
	case StageCompleted, StageCompletedWithError, StageFailed, StageCancelled:
		return true
	}
	return false
}
