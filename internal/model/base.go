// Package model holds the persisted entities shared by all services.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by every entity: UUIDv7 primary key plus timestamps.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUIDv7 so primary keys stay time-ordered.
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		b.ID = id
	}
	return nil
}

// AllModels lists every entity for migration, dependency order first.
func AllModels() []any {
	return []any{
		&Hospital{},
		&User{},
		&Patient{},
		&File{},
		&Invoice{},
		&InvoiceItem{},
		&LedgerTransaction{},
		&AvailableNumber{},
		&NumberingState{},
		&Vendor{},
		&Expense{},
		&AuditLog{},
	}
}
