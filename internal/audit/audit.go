// Package audit records sensitive transitions twice: as rows queryable by
// compliance tooling and as lines in the per-category log files.
package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/pkg/logs"
)

type Entry struct {
	Category   string // logs.CategoryAuth, CategoryActivity, CategorySystem
	Action     string // model.Audit* constant
	ActorID    *uuid.UUID
	HospitalID *uuid.UUID
	EntityType string
	EntityID   *uuid.UUID
	Detail     string
}

type Recorder struct {
	db  *gorm.DB
	set *logs.AuditSet
}

func NewRecorder(db *gorm.DB, set *logs.AuditSet) *Recorder {
	return &Recorder{db: db, set: set}
}

// Record persists the entry. Audit failures never break the operation
// being audited; they are logged and dropped.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	row := model.AuditLog{
		Category:   e.Category,
		Action:     e.Action,
		ActorID:    e.ActorID,
		HospitalID: e.HospitalID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Detail:     e.Detail,
	}

	log := r.set.For(e.Category)

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		log.Error("audit row write failed", "action", e.Action, "error", err)
	}

	attrs := []any{"action", e.Action, "entity_type", e.EntityType}
	if e.ActorID != nil {
		attrs = append(attrs, "actor_id", e.ActorID.String())
	}
	if e.HospitalID != nil {
		attrs = append(attrs, "hospital_id", e.HospitalID.String())
	}
	if e.EntityID != nil {
		attrs = append(attrs, "entity_id", e.EntityID.String())
	}
	if e.Detail != "" {
		attrs = append(attrs, "detail", e.Detail)
	}
	log.Info("audit", attrs...)
}
