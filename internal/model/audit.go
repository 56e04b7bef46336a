package model

import "github.com/google/uuid"

// Audit actions recorded on sensitive transitions.
const (
	AuditFileUploaded          = "FILE_UPLOADED"
	AuditFileConfirmed         = "FILE_CONFIRMED"
	AuditFileDeleted           = "FILE_DELETED"
	AuditFileDeletionRequested = "FILE_DELETION_REQUESTED"
	AuditFileDeletionApproved  = "FILE_DELETION_APPROVED"
	AuditFileDeletionRejected  = "FILE_DELETION_REJECTED"
	AuditFileRestoreRequested  = "FILE_RESTORE_REQUESTED"
	AuditFileDownloadRequested = "FILE_DOWNLOAD_REQUESTED"
	AuditUserLogin             = "USER_LOGIN"
	AuditUserLoginFailed       = "USER_LOGIN_FAILED"
	AuditUserLocked            = "USER_LOCKED"
	AuditInvoiceCreated        = "INVOICE_CREATED"
	AuditInvoicePaid           = "INVOICE_PAID"
	AuditInvoiceDeleted        = "INVOICE_DELETED"
)

type AuditLog struct {
	Base
	Category   string     `gorm:"size:20;not null;index" json:"category"` // auth, activity, system
	Action     string     `gorm:"size:50;not null;index" json:"action"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	HospitalID *uuid.UUID `gorm:"type:uuid;index" json:"hospital_id,omitempty"`
	EntityType string     `gorm:"size:50" json:"entity_type"`
	EntityID   *uuid.UUID `gorm:"type:uuid;index" json:"entity_id,omitempty"`
	Detail     string     `gorm:"type:text" json:"detail,omitempty"`
}
