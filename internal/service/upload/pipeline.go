package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/transform"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
)

// Stage progress floors. Progress only moves forward except on failure,
// where it resets to 0.
const (
	progressCompressing = 10
	progressAnalyzing   = 50
	progressEncrypting  = 60
	progressUploading   = 80
	progressCompleted   = 100
)

// runPipeline drives one file from spooled temp file to draft object.
// The request context is gone by the time this runs; every step gets its
// own deadline.
func (s *service) runPipeline(fileID uuid.UUID, tmpPath string, kind transform.Kind, tenantName, mrd string) {
	log := s.log.With("file_id", fileID)

	workPath := tmpPath
	temps := []string{tmpPath}
	defer func() {
		for _, p := range temps {
			_ = os.Remove(p)
		}
	}()

	// compressing (10%): failures fall back to the original bytes.
	if !s.advance(fileID, model.StageCompressing, progressCompressing) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	switch kind {
	case transform.KindPDF:
		workPath = s.tr.CompressPDF(ctx, tmpPath)
	case transform.KindVideo:
		workPath = s.tr.TranscodeVideo(ctx, tmpPath)
	}
	cancel()
	if workPath != tmpPath {
		temps = append(temps, workPath)
	}

	// analyzing (50%): page count is best-effort, 0 for videos.
	if !s.advance(fileID, model.StageAnalyzing, progressAnalyzing) {
		return
	}
	pageCount := 0
	if kind == transform.KindPDF {
		pageCount = s.tr.PageCount(workPath)
	}

	// encrypting (60%): failure is fatal for the pipeline.
	if !s.advance(fileID, model.StageEncrypting, progressEncrypting) {
		return
	}
	encPath, err := s.box.EncryptFile(workPath)
	if err != nil {
		log.Error("encryption failed", "error", err)
		s.fail(fileID)
		return
	}
	temps = append(temps, encPath)

	// last cancellation point: once the object is uploaded the file is
	// committed.
	if s.cancelled(fileID) {
		log.Info("pipeline stopped by cancellation")
		return
	}

	// uploading (80%)
	if !s.advance(fileID, model.StageUploading, progressUploading) {
		return
	}
	ext := strings.ToLower(filepath.Ext(tmpPath))
	token := objstore.RandomToken()
	draftKey := objstore.DraftKey(tenantName, mrd, token, ext)

	encInfo, err := os.Stat(encPath)
	if err != nil {
		log.Error("stat encrypted file failed", "error", err)
		s.fail(fileID)
		return
	}
	encFile, err := os.Open(encPath)
	if err != nil {
		log.Error("open encrypted file failed", "error", err)
		s.fail(fileID)
		return
	}

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Minute)
	err = s.store.Put(ctx, draftKey, encFile, encInfo.Size(), "application/octet-stream")
	cancel()
	_ = encFile.Close()
	if err != nil {
		log.Error("draft upload failed", "key", draftKey, "error", err)
		s.fail(fileID)
		return
	}

	// completed (100%): persist key, size and page count in one commit.
	updates := map[string]any{
		"stage":      model.StageCompleted,
		"progress":   progressCompleted,
		"key":        draftKey,
		"path":       s.objectPath(draftKey),
		"size_bytes": encInfo.Size(),
		"page_count": pageCount,
	}
	if err := s.db.Model(&model.File{}).
		Where("id = ? AND stage <> ?", fileID, model.StageCancelled).
		Updates(updates).Error; err != nil {
		log.Error("final commit failed", "error", err)
		s.fail(fileID)
		return
	}

	s.met.PipelineStage.WithLabelValues(string(model.StageCompleted)).Inc()
	s.met.UploadsCompleted.Inc()
	log.Info("upload pipeline completed", "key", draftKey, "pages", pageCount, "size", encInfo.Size())
}

// advance persists the next stage unless the file was cancelled in the
// meantime. Returns false when the pipeline must stop.
func (s *service) advance(fileID uuid.UUID, stage model.FileStage, progress int) bool {
	res := s.db.Model(&model.File{}).
		Where("id = ? AND stage <> ?", fileID, model.StageCancelled).
		Updates(map[string]any{"stage": stage, "progress": progress})
	if res.Error != nil {
		s.log.Error("stage persist failed", "file_id", fileID, "stage", stage, "error", res.Error)
		s.fail(fileID)
		return false
	}
	if res.RowsAffected == 0 {
		s.log.Info("pipeline stopped by cancellation", "file_id", fileID, "stage", stage)
		return false
	}
	s.met.PipelineStage.WithLabelValues(string(stage)).Inc()
	return true
}

func (s *service) cancelled(fileID uuid.UUID) bool {
	var stage string
	err := s.db.Model(&model.File{}).
		Where("id = ?", fileID).
		Pluck("stage", &stage).Error
	if err != nil {
		return false
	}
	return model.FileStage(stage) == model.StageCancelled
}

// fail marks the pipeline failed and resets progress. Background tasks
// never propagate errors to the HTTP layer.
func (s *service) fail(fileID uuid.UUID) {
	if err := s.db.Model(&model.File{}).
		Where("id = ?", fileID).
		Updates(map[string]any{"stage": model.StageFailed, "progress": 0}).Error; err != nil {
		s.log.Error("failed to mark file failed", "file_id", fileID, "error", err)
	}
	s.met.UploadsFailed.Inc()
}

func (s *service) objectPath(key string) string {
	if s.cfg.Bucket != "" {
		return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
	}
	return key
}
