// Package scope implements the tenant access guard. Every entity query
// routes through ForCaller so cross-tenant reads are impossible by
// construction; misses surface as record-not-found, never as forbidden,
// so existence is not leaked.
package scope

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/model"
	pasetotoken "github.com/arcmed/arcmed_backend/pkg/paseto"
)

// Caller identifies the authenticated principal a request acts as.
type Caller struct {
	UserID     uuid.UUID
	Role       string
	HospitalID *uuid.UUID
}

// FromClaims builds a Caller from verified token claims.
func FromClaims(cl *pasetotoken.Claims) Caller {
	return Caller{
		UserID:     cl.UserID,
		Role:       cl.Role,
		HospitalID: cl.HospitalID,
	}
}

// Platform reports whether the caller operates across all tenants.
func (c Caller) Platform() bool {
	return model.IsPlatformRole(c.Role)
}

// ForCaller returns a gorm scope restricting queries to the caller's
// hospital. Platform callers get no restriction; tenant callers with no
// hospital match nothing.
func ForCaller(c Caller) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if c.Platform() {
			return db
		}
		if c.HospitalID == nil {
			// tenant role without a tenant: matches nothing
			return db.Where("1 = 0")
		}
		return db.Where("hospital_id = ?", *c.HospitalID)
	}
}

// Owns reports whether the caller may act on an entity belonging to
// hospitalID. Platform callers own everything.
func (c Caller) Owns(hospitalID uuid.UUID) bool {
	if c.Platform() {
		return true
	}
	return c.HospitalID != nil && *c.HospitalID == hospitalID
}
