package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/events"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/logs"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
)

// Confirm publishes a draft: copy the object to its final tenant
// partition, verify the copy, flip the row, then best-effort delete the
// draft. Calling it on an already confirmed file is a no-op success.
func (s *service) Confirm(ctx context.Context, caller scope.Caller, fileID uuid.UUID) (*model.File, error) {
	file, err := s.loadFile(ctx, caller, fileID)
	if err != nil {
		return nil, err
	}

	if file.Status == model.FileStatusConfirmed {
		return file, nil
	}
	if file.Stage != model.StageCompleted {
		return nil, apperr.From(apperr.KindConflict, ErrPipelineIncomplete)
	}
	if file.Patient == nil || file.Patient.Hospital == nil {
		return nil, fmt.Errorf("file %s missing patient or hospital", file.ID)
	}

	srcKey, err := s.locateDraft(ctx, file.Key)
	if err != nil {
		return nil, err
	}

	token := objstore.TokenFromKey(srcKey)
	if token == "" {
		token = objstore.RandomToken()
	}
	finalKey := objstore.FinalKey(file.Patient.Hospital.Name, file.Patient.MRD, token, file.Patient.ArchiveDate())

	if err := s.store.Copy(ctx, srcKey, finalKey); err != nil {
		return nil, mapStoreErr(err)
	}
	// proof of copy before the DB flip
	if _, err := s.store.Head(ctx, finalKey); err != nil {
		return nil, mapStoreErr(err)
	}

	updates := map[string]any{
		"status": model.FileStatusConfirmed,
		"key":    finalKey,
		"path":   s.objectPath(finalKey),
	}
	if err := s.db.WithContext(ctx).Model(&model.File{}).
		Where("id = ?", file.ID).
		Updates(updates).Error; err != nil {
		// the draft is intact; the orphaned final object is overwritten
		// on the next attempt
		return nil, fmt.Errorf("commit confirmation: %w", err)
	}

	if err := s.store.Delete(ctx, srcKey); err != nil {
		s.log.Warn("draft cleanup failed, sweep will reclaim", "key", srcKey, "error", err)
	}

	file.Status = model.FileStatusConfirmed
	file.Key = finalKey
	file.Path = s.objectPath(finalKey)

	s.met.FilesConfirmed.Inc()
	s.rec.Record(ctx, audit.Entry{
		Category:   logs.CategoryActivity,
		Action:     model.AuditFileConfirmed,
		ActorID:    &caller.UserID,
		HospitalID: &file.HospitalID,
		EntityType: "file",
		EntityID:   &file.ID,
		Detail:     finalKey,
	})

	if s.pub != nil {
		if err := s.pub.Publish(events.SubjectFileConfirmed, events.FileConfirmed{FileID: file.ID}.Marshal()); err != nil {
			s.log.Warn("file.confirmed publish failed", "file_id", file.ID, "error", err)
		}
	}

	return file, nil
}

// locateDraft finds the draft object, falling back to historical key
// layouts still present in live buckets.
func (s *service) locateDraft(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", apperr.From(apperr.KindNotFound, ErrObjectMissing)
	}

	_, err := s.store.Head(ctx, key)
	if err == nil {
		return key, nil
	}
	if !objstore.IsNotFound(err) {
		return "", mapStoreErr(err)
	}

	if s.cfg.LegacyLayouts {
		for _, candidate := range objstore.LegacyCandidates(key) {
			if candidate == key {
				continue
			}
			if _, err := s.store.Head(ctx, candidate); err == nil {
				s.log.Info("draft found under legacy layout", "key", key, "legacy", candidate)
				return candidate, nil
			}
		}
	}

	return "", apperr.From(apperr.KindNotFound, ErrObjectMissing)
}

func (s *service) objectPath(key string) string {
	if s.cfg.Bucket != "" {
		return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
	}
	return key
}
