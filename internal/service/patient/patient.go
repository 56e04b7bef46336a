// Package patient manages patient master records. MRD numbers are unique
// per hospital, never globally.
package patient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
)

type CreateRequest struct {
	HospitalID    uuid.UUID             `json:"hospital_id"`
	MRD           string                `json:"mrd"`
	UHID          *string               `json:"uhid,omitempty"`
	Name          string                `json:"name"`
	Gender        string                `json:"gender"`
	DOB           *time.Time            `json:"dob,omitempty"`
	Category      model.PatientCategory `json:"category"`
	AdmissionDate *time.Time            `json:"admission_date,omitempty"`
	DischargeDate *time.Time            `json:"discharge_date,omitempty"`
	MotherID      *uuid.UUID            `json:"mother_id,omitempty"`
	BoxNumber     *string               `json:"box_number,omitempty"`
}

type ListFilter struct {
	Search   string                `json:"search"` // matches MRD, UHID or name
	Category model.PatientCategory `json:"category"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

type Service interface {
	Create(ctx context.Context, caller scope.Caller, req CreateRequest) (*model.Patient, error)
	Get(ctx context.Context, caller scope.Caller, id uuid.UUID) (*model.Patient, error)
	List(ctx context.Context, caller scope.Caller, filter ListFilter) ([]model.Patient, error)
	Files(ctx context.Context, caller scope.Caller, id uuid.UUID) ([]model.File, error)
}

type service struct {
	db   *gorm.DB
	auth *authorize.Authorizer
	log  *slog.Logger
}

func New(db *gorm.DB, auth *authorize.Authorizer, log *slog.Logger) Service {
	return &service{db: db, auth: auth, log: log.With("component", "patient")}
}

func (s *service) Create(ctx context.Context, caller scope.Caller, req CreateRequest) (*model.Patient, error) {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionPatientWrite); err != nil {
		return nil, apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}
	if req.MRD == "" || req.Name == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "mrd and name are required")
	}

	hospitalID := req.HospitalID
	// tenant callers always write into their own hospital
	if !caller.Platform() {
		if caller.HospitalID == nil {
			return nil, apperr.From(apperr.KindForbidden, ErrRoleForbidden)
		}
		hospitalID = *caller.HospitalID
	}

	category := req.Category
	if category == "" {
		category = model.CategoryStandard
	}
	if !model.ValidCategory(category) {
		return nil, apperr.From(apperr.KindInvalidInput, ErrInvalidCategory).
			With("category", string(category))
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Patient{}).
		Where("hospital_id = ? AND mrd = ?", hospitalID, req.MRD).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.From(apperr.KindConflict, ErrMRDTaken).With("mrd", req.MRD)
	}

	p := model.Patient{
		HospitalID:    hospitalID,
		MRD:           req.MRD,
		UHID:          req.UHID,
		Name:          req.Name,
		Gender:        req.Gender,
		DOB:           req.DOB,
		Category:      category,
		AdmissionDate: req.AdmissionDate,
		DischargeDate: req.DischargeDate,
		MotherID:      req.MotherID,
		BoxNumber:     req.BoxNumber,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return &p, nil
}

func (s *service) Get(ctx context.Context, caller scope.Caller, id uuid.UUID) (*model.Patient, error) {
	var p model.Patient
	err := s.db.WithContext(ctx).
		Scopes(scope.ForCaller(caller)).
		Where("id = ?", id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.From(apperr.KindNotFound, ErrPatientNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	return &p, nil
}

func (s *service) List(ctx context.Context, caller scope.Caller, filter ListFilter) ([]model.Patient, error) {
	q := s.db.WithContext(ctx).
		Scopes(scope.ForCaller(caller)).
		Order("created_at desc")

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("mrd LIKE ? OR uhid LIKE ? OR name LIKE ?", like, like, like)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	var out []model.Patient
	return out, q.Find(&out).Error
}

// Files lists a patient's archived files. The patient lookup and the file
// scan are both tenant-scoped; the denormalized hospital_id on files
// keeps this to two indexed queries.
func (s *service) Files(ctx context.Context, caller scope.Caller, id uuid.UUID) ([]model.File, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}

	var files []model.File
	err := s.db.WithContext(ctx).
		Scopes(scope.ForCaller(caller)).
		Where("patient_id = ?", id).
		Order("created_at desc").
		Find(&files).Error
	return files, err
}
