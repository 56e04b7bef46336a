package document

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
	"github.com/arcmed/arcmed_backend/pkg/email"
	"github.com/arcmed/arcmed_backend/pkg/logs"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
)

// Serve returns the decrypted bytes of a confirmed file. Cold objects
// must be restored first.
func (s *service) Serve(ctx context.Context, caller scope.Caller, fileID uuid.UUID) (*ServeResult, error) {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionFileServe); err != nil {
		return nil, apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}

	file, err := s.loadFile(ctx, caller, fileID)
	if err != nil {
		return nil, err
	}
	if file.Status != model.FileStatusConfirmed {
		return nil, apperr.From(apperr.KindConflict, ErrNotConfirmed)
	}

	return s.fetchDecrypted(ctx, file)
}

// fetchDecrypted heads, reads and decrypts the object behind a file row.
func (s *service) fetchDecrypted(ctx context.Context, file *model.File) (*ServeResult, error) {
	info, err := s.store.Head(ctx, file.Key)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if info.IsCold && info.RestoreState != objstore.RestoreAvailable {
		return nil, apperr.From(apperr.KindColdStorage, ErrColdStorage).
			With("restore_state", string(info.RestoreState))
	}

	ciphertext, err := s.store.GetBytes(ctx, file.Key)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	plaintext, err := s.box.Open(ciphertext)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "decryption failed", err)
	}

	return &ServeResult{
		FileName:    file.OriginalName,
		ContentType: contentTypeFor(file.OriginalName),
		Content:     plaintext,
	}, nil
}

// RequestDownload emails the decrypted document to the back office with
// the hospital admin contact in CC. Non-platform callers are capped per
// file.
func (s *service) RequestDownload(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error {
	// platform callers are always allowed and uncapped
	if !caller.Platform() {
		if err := s.auth.MustEnforce(caller.Role, authorize.ActionFileRequestDownload); err != nil {
			return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
		}
	}

	file, err := s.loadFile(ctx, caller, fileID)
	if err != nil {
		return err
	}
	if file.Status != model.FileStatusConfirmed {
		return apperr.From(apperr.KindConflict, ErrNotConfirmed)
	}

	if !caller.Platform() && file.DownloadRequests >= s.cfg.DownloadRequestLimit {
		return apperr.From(apperr.KindQuotaExceeded, ErrDownloadQuota).
			With("download_requests", file.DownloadRequests).
			With("limit", s.cfg.DownloadRequestLimit)
	}

	result, err := s.fetchDecrypted(ctx, file)
	if err != nil {
		return err
	}

	adminCC := ""
	hospitalName := ""
	mrd := ""
	if file.Patient != nil {
		mrd = file.Patient.MRD
		if file.Patient.Hospital != nil {
			adminCC = file.Patient.Hospital.ContactEmail
			hospitalName = file.Patient.Hospital.Name
		}
	}

	msg := email.DownloadRequest(s.cfg.BackOffice, adminCC, hospitalName, mrd,
		result.FileName, result.Content, result.ContentType)
	if err := s.mailer.Send(ctx, msg); err != nil {
		return apperr.Wrap(apperr.KindTransient, "download email failed", err)
	}
	s.met.EmailsSent.Inc()

	if !caller.Platform() {
		// increment in SQL so concurrent requests never lose a count
		if err := s.db.WithContext(ctx).Model(&model.File{}).
			Where("id = ?", file.ID).
			Update("download_requests", gorm.Expr("download_requests + 1")).Error; err != nil {
			s.log.Error("download counter update failed", "file_id", file.ID, "error", err)
		}
	}

	s.rec.Record(ctx, audit.Entry{
		Category:   logs.CategoryActivity,
		Action:     model.AuditFileDownloadRequested,
		ActorID:    &caller.UserID,
		HospitalID: &file.HospitalID,
		EntityType: "file",
		EntityID:   &file.ID,
	})
	return nil
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
