// Package upload implements the ingest pipeline: stream the body to a
// temp file, persist a draft row with snapshotted pricing, then push the
// file through compress → analyze → encrypt → upload in the background.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/config"
	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/metrics"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/internal/transform"
	"github.com/arcmed/arcmed_backend/pkg/filecrypt"
	"github.com/arcmed/arcmed_backend/pkg/logs"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
)

// copyChunk is the streaming buffer size; request bodies are never fully
// buffered in memory.
const copyChunk = 1 << 20

type StatusResult struct {
	FileID   uuid.UUID        `json:"file_id"`
	Status   model.FileStatus `json:"status"`
	Stage    model.FileStage  `json:"stage"`
	Progress int              `json:"progress"`
}

type Service interface {
	Upload(ctx context.Context, caller scope.Caller, patientID uuid.UUID, filename string, body io.Reader) (*model.File, error)
	Status(ctx context.Context, caller scope.Caller, fileID uuid.UUID) (*StatusResult, error)
	Cancel(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error

	// Wait blocks until all background pipeline tasks have finished.
	Wait()
}

type Config struct {
	TempDir string
	Bucket  string
}

func ConfigFromCentral(cfg *config.Config) Config {
	return Config{
		TempDir: cfg.Pipeline.TempDir,
		Bucket:  cfg.Storage.S3.Bucket,
	}
}

type service struct {
	db    *gorm.DB
	store objstore.Store
	box   *filecrypt.Box
	tr    *transform.Transformer
	log   *slog.Logger
	met   *metrics.Metrics
	rec   *audit.Recorder
	cfg   Config

	mu     sync.Mutex
	active map[uuid.UUID]struct{}
	wg     sync.WaitGroup
}

func New(db *gorm.DB, store objstore.Store, box *filecrypt.Box, tr *transform.Transformer,
	rec *audit.Recorder, met *metrics.Metrics, log *slog.Logger, cfg Config) Service {
	return &service{
		db:     db,
		store:  store,
		box:    box,
		tr:     tr,
		log:    log.With("component", "upload"),
		met:    met,
		rec:    rec,
		cfg:    cfg,
		active: make(map[uuid.UUID]struct{}),
	}
}

func (s *service) Upload(ctx context.Context, caller scope.Caller, patientID uuid.UUID, filename string, body io.Reader) (*model.File, error) {
	kind := transform.KindForName(filename)
	if kind == transform.KindUnknown {
		return nil, apperr.From(apperr.KindInvalidInput, ErrUnsupportedType)
	}

	var patient model.Patient
	err := s.db.WithContext(ctx).
		Scopes(scope.ForCaller(caller)).
		Preload("Hospital").
		Where("id = ?", patientID).
		First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.From(apperr.KindNotFound, ErrPatientNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if patient.Hospital == nil {
		return nil, fmt.Errorf("patient %s has no hospital", patient.ID)
	}

	tmpPath, size, err := s.spool(body, filename)
	if err != nil {
		return nil, err
	}

	pricing := patient.Hospital.Pricing()
	file := model.File{
		PatientID:      patient.ID,
		HospitalID:     patient.HospitalID,
		OriginalName:   filename,
		SizeBytes:      size,
		Status:         model.FileStatusDraft,
		Stage:          model.StageQueued,
		Progress:       0,
		BasePrice:      pricing.BasePrice,
		IncludedPages:  pricing.IncludedPages,
		ExtraPagePrice: pricing.ExtraPagePrice,
		DeletionStep:   model.DeletionNone,
		UploadedBy:     &caller.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("create file row: %w", err)
	}

	s.rec.Record(ctx, audit.Entry{
		Category:   logs.CategoryActivity,
		Action:     model.AuditFileUploaded,
		ActorID:    &caller.UserID,
		HospitalID: &patient.HospitalID,
		EntityType: "file",
		EntityID:   &file.ID,
		Detail:     filename,
	})

	if err := s.dispatch(file.ID, tmpPath, kind, patient.Hospital.Name, patient.MRD); err != nil {
		return nil, err
	}

	return &file, nil
}

// spool streams the body into a temp file in 1 MiB chunks.
func (s *service) spool(body io.Reader, filename string) (string, int64, error) {
	if s.cfg.TempDir != "" {
		if err := os.MkdirAll(s.cfg.TempDir, 0o750); err != nil {
			return "", 0, fmt.Errorf("temp dir: %w", err)
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	tmp, err := os.CreateTemp(s.cfg.TempDir, "upload-*"+ext)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}

	buf := make([]byte, copyChunk)
	size, err := io.CopyBuffer(tmp, body, buf)
	closeErr := tmp.Close()
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("spool upload: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("spool upload: %w", closeErr)
	}
	return tmp.Name(), size, nil
}

// dispatch spawns the background pipeline task; at most one task runs
// per file id.
func (s *service) dispatch(fileID uuid.UUID, tmpPath string, kind transform.Kind, tenantName, mrd string) error {
	s.mu.Lock()
	if _, busy := s.active[fileID]; busy {
		s.mu.Unlock()
		return apperr.From(apperr.KindConflict, ErrPipelineActive)
	}
	s.active[fileID] = struct{}{}
	s.mu.Unlock()

	s.met.UploadsStarted.Inc()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.active, fileID)
			s.mu.Unlock()
		}()
		s.runPipeline(fileID, tmpPath, kind, tenantName, mrd)
	}()
	return nil
}

func (s *service) Status(ctx context.Context, caller scope.Caller, fileID uuid.UUID) (*StatusResult, error) {
	var file model.File
	err := s.db.WithContext(ctx).
		Scopes(scope.ForCaller(caller)).
		Select("id", "status", "stage", "progress").
		Where("id = ?", fileID).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.From(apperr.KindNotFound, ErrFileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load file: %w", err)
	}
	return &StatusResult{
		FileID:   file.ID,
		Status:   file.Status,
		Stage:    file.Stage,
		Progress: file.Progress,
	}, nil
}

// Cancel stops the pipeline if it has not passed encryption yet. After
// the object is uploaded, cancellation is a no-op error.
func (s *service) Cancel(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error {
	var file model.File
	err := s.db.WithContext(ctx).
		Scopes(scope.ForCaller(caller)).
		Where("id = ?", fileID).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.From(apperr.KindNotFound, ErrFileNotFound)
	}
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}

	switch file.Stage {
	case model.StageQueued, model.StageCompressing, model.StageAnalyzing, model.StageEncrypting:
	default:
		return apperr.From(apperr.KindConflict, ErrTooLateToCancel)
	}

	res := s.db.WithContext(ctx).Model(&model.File{}).
		Where("id = ? AND stage IN ?", fileID, []model.FileStage{
			model.StageQueued, model.StageCompressing, model.StageAnalyzing, model.StageEncrypting,
		}).
		Update("stage", model.StageCancelled)
	if res.Error != nil {
		return fmt.Errorf("cancel file: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.From(apperr.KindConflict, ErrTooLateToCancel)
	}

	s.met.UploadsCancelled.Inc()
	s.log.Info("upload cancelled", "file_id", fileID)
	return nil
}

func (s *service) Wait() {
	s.wg.Wait()
}
