// Package document owns the archived-file lifecycle after upload:
// draft confirmation, retrieval with cold-storage handling, restore
// polling, download-request emails, and the multi-actor deletion
// workflow.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/config"
	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/metrics"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
	"github.com/arcmed/arcmed_backend/pkg/email"
	"github.com/arcmed/arcmed_backend/pkg/filecrypt"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
)

// Mailer sends notification emails. *email.Client satisfies it.
type Mailer interface {
	Send(ctx context.Context, m email.Message) error
}

// Publisher emits events for background workers. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type ServeResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

type Service interface {
	Confirm(ctx context.Context, caller scope.Caller, fileID uuid.UUID) (*model.File, error)
	DiscardDraft(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error

	Serve(ctx context.Context, caller scope.Caller, fileID uuid.UUID) (*ServeResult, error)
	Restore(ctx context.Context, caller scope.Caller, fileID uuid.UUID, tier objstore.RestoreTier) error
	RequestDownload(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error

	Delete(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error
	RequestDeletion(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error
	ApproveDeletion(ctx context.Context, caller scope.Caller, fileID uuid.UUID, intermediate bool) error
	RejectDeletion(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error

	// Wait blocks until background restore pollers have finished.
	Wait()
}

type Config struct {
	Bucket        string
	BackOffice    string
	LegacyLayouts bool

	RestorePollInterval   time.Duration
	RestorePollIterations int
	DownloadRequestLimit  int
}

func ConfigFromCentral(cfg *config.Config) Config {
	return Config{
		Bucket:                cfg.Storage.S3.Bucket,
		BackOffice:            cfg.Email.BackOffice,
		LegacyLayouts:         cfg.Storage.LegacyLayouts,
		RestorePollInterval:   time.Duration(cfg.Pipeline.RestorePollSeconds) * time.Second,
		RestorePollIterations: cfg.Pipeline.RestorePollIterations,
		DownloadRequestLimit:  cfg.Pipeline.DownloadRequestLimit,
	}
}

type service struct {
	db     *gorm.DB
	store  objstore.Store
	box    *filecrypt.Box
	auth   *authorize.Authorizer
	mailer Mailer
	pub    Publisher
	rec    *audit.Recorder
	met    *metrics.Metrics
	log    *slog.Logger
	cfg    Config

	wg sync.WaitGroup
}

func New(db *gorm.DB, store objstore.Store, box *filecrypt.Box, auth *authorize.Authorizer,
	mailer Mailer, pub Publisher, rec *audit.Recorder, met *metrics.Metrics,
	log *slog.Logger, cfg Config) Service {
	return &service{
		db:     db,
		store:  store,
		box:    box,
		auth:   auth,
		mailer: mailer,
		pub:    pub,
		rec:    rec,
		met:    met,
		log:    log.With("component", "document"),
		cfg:    cfg,
	}
}

// loadFile reads the file + patient + hospital triple in one scoped
// query. Cross-tenant ids surface as not-found.
func (s *service) loadFile(ctx context.Context, caller scope.Caller, fileID uuid.UUID) (*model.File, error) {
	var file model.File
	err := s.db.WithContext(ctx).
		Scopes(scope.ForCaller(caller)).
		Preload("Patient").
		Preload("Patient.Hospital").
		Where("id = ?", fileID).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.From(apperr.KindNotFound, ErrFileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load file: %w", err)
	}
	return &file, nil
}

// mapStoreErr translates object-store error kinds into the API taxonomy.
func mapStoreErr(err error) error {
	switch {
	case objstore.IsNotFound(err):
		return apperr.Wrap(apperr.KindNotFound, "object not found", err)
	case objstore.IsTransient(err):
		return apperr.Wrap(apperr.KindTransient, "object store unavailable", err)
	default:
		return apperr.Wrap(apperr.KindTransient, "object store error", err)
	}
}

func (s *service) Wait() {
	s.wg.Wait()
}
