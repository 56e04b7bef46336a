// Package user manages accounts. Role strings are normalized onto the
// canonical set and the platform/tenant invariant is enforced on every
// write: platform roles carry no hospital, all others must.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
	"github.com/arcmed/arcmed_backend/pkg/password"
)

type CreateRequest struct {
	Email      string     `json:"email"`
	Password   string     `json:"password"`
	FullName   string     `json:"full_name"`
	Role       string     `json:"role"`
	HospitalID *uuid.UUID `json:"hospital_id,omitempty"`
}

type Service interface {
	Create(ctx context.Context, caller scope.Caller, req CreateRequest) (*model.User, error)
	Get(ctx context.Context, caller scope.Caller, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, caller scope.Caller) ([]model.User, error)
	SetActive(ctx context.Context, caller scope.Caller, id uuid.UUID, active bool) error
}

type service struct {
	db     *gorm.DB
	auth   *authorize.Authorizer
	params *password.Params
	log    *slog.Logger
}

func New(db *gorm.DB, auth *authorize.Authorizer, params *password.Params, log *slog.Logger) Service {
	return &service{db: db, auth: auth, params: params, log: log.With("component", "user")}
}

func (s *service) Create(ctx context.Context, caller scope.Caller, req CreateRequest) (*model.User, error) {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionUserManage); err != nil {
		return nil, apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "email and password are required")
	}

	role := model.NormalizeRole(req.Role)
	if role == "" {
		return nil, apperr.From(apperr.KindInvalidInput, ErrUnknownRole).With("role", req.Role)
	}

	hospitalID := req.HospitalID
	if !caller.Platform() {
		// tenant admins only create tenant users inside their own hospital
		if model.IsPlatformRole(role) {
			return nil, apperr.From(apperr.KindForbidden, ErrRoleEscalation)
		}
		hospitalID = caller.HospitalID
	}

	if model.IsPlatformRole(role) != (hospitalID == nil) {
		return nil, apperr.From(apperr.KindInvalidInput, ErrTenantMismatch)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.From(apperr.KindConflict, ErrEmailTaken)
	}

	hash, err := password.HashWithParams(req.Password, s.params)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := model.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         role,
		HospitalID:   hospitalID,
		IsActive:     true,
		// first login must rotate the admin-chosen password
		ForcePasswordChange: true,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user created", "user_id", u.ID, "role", u.Role)
	return &u, nil
}

func (s *service) Get(ctx context.Context, caller scope.Caller, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := s.scoped(caller).WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.From(apperr.KindNotFound, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

func (s *service) List(ctx context.Context, caller scope.Caller) ([]model.User, error) {
	var out []model.User
	return out, s.scoped(caller).WithContext(ctx).Order("email asc").Find(&out).Error
}

func (s *service) SetActive(ctx context.Context, caller scope.Caller, id uuid.UUID, active bool) error {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionUserManage); err != nil {
		return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}
	if !active && id == caller.UserID {
		return apperr.From(apperr.KindInvalidInput, ErrSelfDeactivate)
	}

	u, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", u.ID).
		Update("is_active", active).Error
}

// scoped restricts user visibility to the caller's hospital. The shared
// tenant scope is not reused here because platform users have a NULL
// hospital_id and must stay hidden from tenant admins, not matched by it.
func (s *service) scoped(caller scope.Caller) *gorm.DB {
	if caller.Platform() {
		return s.db
	}
	if caller.HospitalID == nil {
		return s.db.Where("1 = 0")
	}
	return s.db.Where("hospital_id = ?", *caller.HospitalID)
}
