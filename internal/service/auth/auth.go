// Package auth implements login with progressive lockout, PASETO token
// issuance, and server-side session revocation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/config"
	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/pkg/logs"
	pasetotoken "github.com/arcmed/arcmed_backend/pkg/paseto"
	"github.com/arcmed/arcmed_backend/pkg/password"
)

type LoginResult struct {
	Token               string     `json:"token"`
	ExpiresAt           time.Time  `json:"expires_at"`
	UserID              uuid.UUID  `json:"user_id"`
	Role                string     `json:"role"`
	HospitalID          *uuid.UUID `json:"hospital_id,omitempty"`
	ForcePasswordChange bool       `json:"force_password_change"`
}

type Service interface {
	Login(ctx context.Context, email, plaintext string) (*LoginResult, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error

	// ValidSession reports whether a session is still live; the HTTP auth
	// middleware calls this on every request.
	ValidSession(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

type Config struct {
	MaxFailedLogins int
	LockoutDuration time.Duration
	SessionTTL      time.Duration
}

func ConfigFromCentral(cfg *config.Config) Config {
	c := Config{
		MaxFailedLogins: cfg.Auth.MaxFailedLogins,
		LockoutDuration: time.Duration(cfg.Auth.LockoutMinutes) * time.Minute,
		SessionTTL:      time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute,
	}
	// the sixth consecutive failure locks the account
	if c.MaxFailedLogins <= 0 {
		c.MaxFailedLogins = 6
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 30 * time.Minute
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 12 * time.Hour
	}
	return c
}

type service struct {
	db       *gorm.DB
	tokens   *pasetotoken.Manager
	sessions Sessions
	params   *password.Params
	rec      *audit.Recorder
	log      *slog.Logger
	cfg      Config

	now func() time.Time
}

func New(db *gorm.DB, tokens *pasetotoken.Manager, sessions Sessions, params *password.Params,
	rec *audit.Recorder, log *slog.Logger, cfg Config) Service {
	return &service{
		db:       db,
		tokens:   tokens,
		sessions: sessions,
		params:   params,
		rec:      rec,
		log:      log.With("component", "auth"),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Login verifies credentials and returns a fresh access token backed by a
// server-side session. Lookup failures and bad passwords are deliberately
// indistinguishable to the caller.
func (s *service) Login(ctx context.Context, email, plaintext string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.auditLogin(ctx, nil, model.AuditUserLoginFailed, "unknown email: "+email)
		return nil, apperr.From(apperr.KindForbidden, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !user.IsActive {
		s.auditLogin(ctx, &user, model.AuditUserLoginFailed, "account disabled")
		return nil, apperr.From(apperr.KindForbidden, ErrAccountDisabled)
	}

	now := s.now()
	if user.LockedAt(now) {
		return nil, apperr.From(apperr.KindLocked, ErrAccountLocked).
			With("unlock_at", user.LockedUntil.UTC().Format(time.RFC3339))
	}

	if !password.Match(user.PasswordHash, plaintext) {
		return nil, s.recordFailure(ctx, &user, now)
	}

	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	if err := s.sessions.Create(ctx, sessionID, user.ID, s.cfg.SessionTTL); err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "session store unavailable", err)
	}

	token, err := s.tokens.IssueAccess(user.ID, user.Role, user.HospitalID, &sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"failed_logins": 0,
			"locked_until":  nil,
			"last_login_at": now,
		}).Error; err != nil {
		s.log.Error("login bookkeeping failed", "user_id", user.ID, "error", err)
	}

	s.auditLogin(ctx, &user, model.AuditUserLogin, "")
	return &LoginResult{
		Token:               token,
		ExpiresAt:           now.Add(s.cfg.SessionTTL),
		UserID:              user.ID,
		Role:                user.Role,
		HospitalID:          user.HospitalID,
		ForcePasswordChange: user.ForcePasswordChange,
	}, nil
}

// recordFailure bumps the failure counter and locks the account once the
// threshold is reached.
func (s *service) recordFailure(ctx context.Context, user *model.User, now time.Time) error {
	failures := user.FailedLogins + 1
	updates := map[string]any{"failed_logins": failures}

	locked := failures >= s.cfg.MaxFailedLogins
	var until time.Time
	if locked {
		until = now.Add(s.cfg.LockoutDuration)
		updates["locked_until"] = until
		updates["failed_logins"] = 0
	}

	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}

	if locked {
		s.auditLogin(ctx, user, model.AuditUserLocked, fmt.Sprintf("locked until %s", until.UTC().Format(time.RFC3339)))
		return apperr.From(apperr.KindLocked, ErrAccountLocked).
			With("unlock_at", until.UTC().Format(time.RFC3339))
	}

	s.auditLogin(ctx, user, model.AuditUserLoginFailed, fmt.Sprintf("failure %d of %d", failures, s.cfg.MaxFailedLogins))
	return apperr.From(apperr.KindForbidden, ErrInvalidCredentials)
}

func (s *service) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return apperr.Wrap(apperr.KindTransient, "session store unavailable", err)
	}
	return nil
}

func (s *service) ValidSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	return s.sessions.Valid(ctx, sessionID)
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	var user model.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.From(apperr.KindNotFound, ErrUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if !password.Match(user.PasswordHash, current) {
		return apperr.From(apperr.KindForbidden, ErrWrongPassword)
	}

	hash, err := password.HashWithParams(next, s.params)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"password_hash":         hash,
			"force_password_change": false,
		}).Error
}

func (s *service) auditLogin(ctx context.Context, user *model.User, action, detail string) {
	entry := audit.Entry{
		Category: logs.CategoryAuth,
		Action:   action,
		Detail:   detail,
	}
	if user != nil {
		entry.ActorID = &user.ID
		entry.HospitalID = user.HospitalID
		entry.EntityType = "user"
		entry.EntityID = &user.ID
	}
	s.rec.Record(ctx, entry)
}
