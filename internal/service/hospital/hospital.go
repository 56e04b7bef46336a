// Package hospital manages tenant records: onboarding, pricing tiers,
// and the propose/approve flow for profile changes coming from tenant
// admins.
package hospital

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
)

type CreateRequest struct {
	Name            string  `json:"name"`
	ContactEmail    string  `json:"contact_email"`
	Tier            string  `json:"tier"`
	BasePrice       float64 `json:"base_price"`
	IncludedPages   int     `json:"included_pages"`
	ExtraPagePrice  float64 `json:"extra_page_price"`
	RegistrationFee float64 `json:"registration_fee"`
}

// ProfileUpdate is what a tenant admin may propose about their own
// hospital. Pricing is platform-only and never part of a proposal.
type ProfileUpdate struct {
	Name         string `json:"name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

type Service interface {
	Create(ctx context.Context, caller scope.Caller, req CreateRequest) (*model.Hospital, error)
	Get(ctx context.Context, caller scope.Caller, id uuid.UUID) (*model.Hospital, error)
	List(ctx context.Context, caller scope.Caller) ([]model.Hospital, error)
	SetPricing(ctx context.Context, caller scope.Caller, id uuid.UUID, p model.Pricing) error
	SetActive(ctx context.Context, caller scope.Caller, id uuid.UUID, active bool) error

	ProposeUpdate(ctx context.Context, caller scope.Caller, id uuid.UUID, upd ProfileUpdate) error
	ApproveUpdate(ctx context.Context, caller scope.Caller, id uuid.UUID) (*model.Hospital, error)
	RejectUpdate(ctx context.Context, caller scope.Caller, id uuid.UUID) error
}

type service struct {
	db   *gorm.DB
	auth *authorize.Authorizer
	log  *slog.Logger
}

func New(db *gorm.DB, auth *authorize.Authorizer, log *slog.Logger) Service {
	return &service{db: db, auth: auth, log: log.With("component", "hospital")}
}

func (s *service) Create(ctx context.Context, caller scope.Caller, req CreateRequest) (*model.Hospital, error) {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionHospitalManage); err != nil {
		return nil, apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}
	if req.Name == "" || req.ContactEmail == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "name and contact email are required")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Hospital{}).
		Where("contact_email = ?", req.ContactEmail).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.From(apperr.KindConflict, ErrEmailTaken)
	}

	h := model.Hospital{
		Name:            req.Name,
		ContactEmail:    req.ContactEmail,
		Tier:            req.Tier,
		BasePrice:       req.BasePrice,
		IncludedPages:   req.IncludedPages,
		ExtraPagePrice:  req.ExtraPagePrice,
		RegistrationFee: req.RegistrationFee,
		IsActive:        true,
	}
	if err := s.db.WithContext(ctx).Create(&h).Error; err != nil {
		return nil, fmt.Errorf("create hospital: %w", err)
	}
	s.log.Info("hospital created", "hospital_id", h.ID, "name", h.Name)
	return &h, nil
}

// load applies tenant visibility: platform roles see any hospital, tenant
// callers only their own.
func (s *service) load(ctx context.Context, caller scope.Caller, id uuid.UUID) (*model.Hospital, error) {
	if !caller.Platform() && (caller.HospitalID == nil || *caller.HospitalID != id) {
		return nil, apperr.From(apperr.KindNotFound, ErrHospitalNotFound)
	}

	var h model.Hospital
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.From(apperr.KindNotFound, ErrHospitalNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load hospital: %w", err)
	}
	return &h, nil
}

func (s *service) Get(ctx context.Context, caller scope.Caller, id uuid.UUID) (*model.Hospital, error) {
	return s.load(ctx, caller, id)
}

func (s *service) List(ctx context.Context, caller scope.Caller) ([]model.Hospital, error) {
	q := s.db.WithContext(ctx).Order("name asc")
	if !caller.Platform() {
		if caller.HospitalID == nil {
			return nil, nil
		}
		q = q.Where("id = ?", *caller.HospitalID)
	}
	var out []model.Hospital
	return out, q.Find(&out).Error
}

func (s *service) SetPricing(ctx context.Context, caller scope.Caller, id uuid.UUID, p model.Pricing) error {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionHospitalManage); err != nil {
		return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}
	h, err := s.load(ctx, caller, id)
	if err != nil {
		return err
	}
	// existing files keep their snapshotted rates; only future uploads
	// pick these up
	return s.db.WithContext(ctx).Model(&model.Hospital{}).
		Where("id = ?", h.ID).
		Updates(map[string]any{
			"base_price":       p.BasePrice,
			"included_pages":   p.IncludedPages,
			"extra_page_price": p.ExtraPagePrice,
		}).Error
}

func (s *service) SetActive(ctx context.Context, caller scope.Caller, id uuid.UUID, active bool) error {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionHospitalManage); err != nil {
		return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}
	h, err := s.load(ctx, caller, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&model.Hospital{}).
		Where("id = ?", h.ID).
		Update("is_active", active).Error
}

// ProposeUpdate stores a profile change for platform review. Tenant
// admins cannot modify their hospital row directly.
func (s *service) ProposeUpdate(ctx context.Context, caller scope.Caller, id uuid.UUID, upd ProfileUpdate) error {
	h, err := s.load(ctx, caller, id)
	if err != nil {
		return err
	}
	if upd.Name == "" && upd.ContactEmail == "" {
		return apperr.New(apperr.KindInvalidInput, "proposed update is empty")
	}

	raw, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("encode pending update: %w", err)
	}
	return s.db.WithContext(ctx).Model(&model.Hospital{}).
		Where("id = ?", h.ID).
		Update("pending_update", string(raw)).Error
}

func (s *service) ApproveUpdate(ctx context.Context, caller scope.Caller, id uuid.UUID) (*model.Hospital, error) {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionHospitalManage); err != nil {
		return nil, apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}
	h, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if h.PendingUpdate == "" {
		return nil, apperr.From(apperr.KindConflict, ErrNoPendingUpdate)
	}

	var upd ProfileUpdate
	if err := json.Unmarshal([]byte(h.PendingUpdate), &upd); err != nil {
		return nil, fmt.Errorf("decode pending update: %w", err)
	}

	updates := map[string]any{"pending_update": ""}
	if upd.Name != "" {
		updates["name"] = upd.Name
		h.Name = upd.Name
	}
	if upd.ContactEmail != "" {
		updates["contact_email"] = upd.ContactEmail
		h.ContactEmail = upd.ContactEmail
	}
	if err := s.db.WithContext(ctx).Model(&model.Hospital{}).
		Where("id = ?", h.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	h.PendingUpdate = ""
	return h, nil
}

func (s *service) RejectUpdate(ctx context.Context, caller scope.Caller, id uuid.UUID) error {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionHospitalManage); err != nil {
		return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}
	h, err := s.load(ctx, caller, id)
	if err != nil {
		return err
	}
	if h.PendingUpdate == "" {
		return apperr.From(apperr.KindConflict, ErrNoPendingUpdate)
	}
	return s.db.WithContext(ctx).Model(&model.Hospital{}).
		Where("id = ?", h.ID).
		Update("pending_update", "").Error
}
