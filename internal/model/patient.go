package model

import (
	"time"

	"github.com/google/uuid"
)

type PatientCategory string

const (
	CategoryStandard PatientCategory = "STANDARD"
	CategoryIPD      PatientCategory = "IPD"
	CategoryOPD      PatientCategory = "OPD"
	CategoryMLC      PatientCategory = "MLC"
	CategoryBirth    PatientCategory = "BIRTH"
	CategoryDeath    PatientCategory = "DEATH"
)

func ValidCategory(c PatientCategory) bool {
	switch c {
	case CategoryStandard, CategoryIPD, CategoryOPD, CategoryMLC, CategoryBirth, CategoryDeath:
		return true
	}
	return false
}

type Patient struct {
	Base
	HospitalID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_patient_mrd" json:"hospital_id"`
	Hospital   *Hospital `gorm:"foreignKey:HospitalID" json:"-"`

	// MRD is unique per hospital, not globally.
	MRD  string  `gorm:"size:100;not null;uniqueIndex:idx_patient_mrd" json:"mrd"`
	UHID *string `gorm:"size:100;index" json:"uhid,omitempty"`

	Name     string          `gorm:"size:255;not null" json:"name"`
	Gender   string          `gorm:"size:20" json:"gender"`
	DOB      *time.Time      `json:"dob,omitempty"`
	Category PatientCategory `gorm:"size:20;default:STANDARD" json:"category"`

	AdmissionDate *time.Time `json:"admission_date,omitempty"`
	DischargeDate *time.Time `json:"discharge_date,omitempty"`

	// MotherID links BIRTH records to the mother's patient record.
	MotherID *uuid.UUID `gorm:"type:uuid" json:"mother_id,omitempty"`

	// BoxNumber references the physical storage box, free-form.
	BoxNumber *string `gorm:"size:100" json:"box_number,omitempty"`
}

// ArchiveDate picks the date final object keys are partitioned by:
// discharge, else admission, else record creation.
func (p *Patient) ArchiveDate() time.Time {
	if p.DischargeDate != nil {
		return *p.DischargeDate
	}
	if p.AdmissionDate != nil {
		return *p.AdmissionDate
	}
	return p.CreatedAt
}
