// Package scheduler runs the auto-confirm sweep: drafts older than the
// configured age are promoted through the normal confirmation path, and
// drafts that keep failing are parked as confirmed with a terminal error
// stage so they stop being retried.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/config"
	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/metrics"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
)

// Confirmer is the slice of the document service the sweep needs.
type Confirmer interface {
	Confirm(ctx context.Context, caller scope.Caller, fileID uuid.UUID) (*model.File, error)
}

// Locker serializes sweeps across processes. Redis SETNX in production.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

const lockKey = "scheduler:auto_confirm"

type Config struct {
	Interval    time.Duration
	DraftMaxAge time.Duration
	MaxAttempts int
}

func ConfigFromCentral(cfg *config.Config) Config {
	c := Config{
		Interval:    time.Duration(cfg.Pipeline.AutoConfirmIntervalMinutes) * time.Minute,
		DraftMaxAge: time.Duration(cfg.Pipeline.AutoConfirmAfterHours) * time.Hour,
		MaxAttempts: cfg.Pipeline.MaxConfirmAttempts,
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.DraftMaxAge <= 0 {
		c.DraftMaxAge = 24 * time.Hour
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	return c
}

type Sweeper struct {
	db        *gorm.DB
	confirmer Confirmer
	lock      Locker
	met       *metrics.Metrics
	log       *slog.Logger
	cfg       Config

	now func() time.Time
}

func New(db *gorm.DB, confirmer Confirmer, lock Locker, met *metrics.Metrics,
	log *slog.Logger, cfg Config) *Sweeper {
	return &Sweeper{
		db:        db,
		confirmer: confirmer,
		lock:      lock,
		met:       met,
		log:       log.With("component", "scheduler"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run ticks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.log.Error("auto-confirm sweep failed", "error", err)
			}
		}
	}
}

// Sweep performs one pass under the advisory lock. The lock TTL covers a
// slow pass; a crashed holder is replaced once it expires.
func (s *Sweeper) Sweep(ctx context.Context) error {
	got, err := s.lock.TryLock(ctx, lockKey, s.cfg.Interval)
	if err != nil {
		return fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !got {
		s.log.Debug("sweep already running elsewhere")
		return nil
	}
	defer func() {
		if err := s.lock.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
			s.log.Warn("sweep lock release failed", "error", err)
		}
	}()

	s.met.AutoConfirmSweeps.Inc()
	cutoff := s.now().Add(-s.cfg.DraftMaxAge)

	var stale []model.File
	if err := s.db.WithContext(ctx).
		Where("status = ? AND created_at <= ?", model.FileStatusDraft, cutoff).
		Order("created_at asc").
		Find(&stale).Error; err != nil {
		return fmt.Errorf("select stale drafts: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	s.log.Info("auto-confirm sweep", "candidates", len(stale))
	for i := range stale {
		s.sweepOne(ctx, &stale[i])
	}
	return nil
}

// system is the actor recorded for scheduler-driven confirmations.
var system = scope.Caller{UserID: uuid.Nil, Role: model.RolePlatformSuper}

func (s *Sweeper) sweepOne(ctx context.Context, file *model.File) {
	log := s.log.With("file_id", file.ID)

	// only pipeline-complete drafts can be confirmed; everything else
	// (failed, cancelled, still running) burns an attempt and is parked
	// once the budget runs out
	_, err := s.confirmer.Confirm(ctx, system, file.ID)
	if err == nil {
		log.Info("stale draft auto-confirmed")
		return
	}

	attempts := file.ConfirmAttempts + 1
	if attempts >= s.cfg.MaxAttempts {
		// terminal: confirmed with an error stage, keeping whatever key
		// the file had, so the sweep stops retrying and statistics stay
		// consistent
		if dbErr := s.db.WithContext(ctx).Model(&model.File{}).
			Where("id = ?", file.ID).
			Updates(map[string]any{
				"status":           model.FileStatusConfirmed,
				"stage":            model.StageCompletedWithError,
				"confirm_attempts": attempts,
			}).Error; dbErr != nil {
			log.Error("parking draft failed", "error", dbErr)
			return
		}
		log.Warn("draft parked as completed_with_error", "attempts", attempts, "last_error", err)
		return
	}

	if dbErr := s.db.WithContext(ctx).Model(&model.File{}).
		Where("id = ?", file.ID).
		Update("confirm_attempts", attempts).Error; dbErr != nil {
		log.Error("attempt bookkeeping failed", "error", dbErr)
		return
	}
	log.Warn("auto-confirm attempt failed",
		"attempts", attempts, "max", s.cfg.MaxAttempts,
		"kind", apperr.KindOf(err).String(), "error", err)
}
