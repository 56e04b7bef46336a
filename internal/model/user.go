package model

import (
	"time"

	"github.com/google/uuid"
)

// Canonical role set. Platform roles carry no hospital; all others must.
const (
	RolePlatformSuper = "platform_super"
	RolePlatformStaff = "platform_staff"
	RoleHospitalAdmin = "hospital_admin"
	RoleRecordsStaff  = "records_staff"
	RoleUploader      = "uploader"
)

// IsPlatformRole reports whether the role operates across all tenants.
func IsPlatformRole(role string) bool {
	return role == RolePlatformSuper || role == RolePlatformStaff
}

// ValidRole reports whether role is one of the canonical roles.
func ValidRole(role string) bool {
	switch role {
	case RolePlatformSuper, RolePlatformStaff, RoleHospitalAdmin, RoleRecordsStaff, RoleUploader:
		return true
	}
	return false
}

// NormalizeRole maps historical aliases onto the canonical set; unknown
// roles come back empty.
func NormalizeRole(role string) string {
	switch role {
	case "superadmin":
		return RolePlatformSuper
	case RolePlatformSuper, RolePlatformStaff, RoleHospitalAdmin, RoleRecordsStaff, RoleUploader:
		return role
	}
	return ""
}

type User struct {
	Base
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:512;not null" json:"-"`
	FullName     string `gorm:"size:255" json:"full_name"`
	Role         string `gorm:"size:50;not null;index" json:"role"`

	// HospitalID is nil for platform roles.
	HospitalID *uuid.UUID `gorm:"type:uuid;index" json:"hospital_id,omitempty"`
	Hospital   *Hospital  `gorm:"foreignKey:HospitalID" json:"-"`

	FailedLogins        int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	KnownDevices        string     `gorm:"type:text" json:"-"`
	ForcePasswordChange bool       `gorm:"default:false" json:"force_password_change"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}

// LockedAt reports whether the account is locked out at the given instant.
func (u *User) LockedAt(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
