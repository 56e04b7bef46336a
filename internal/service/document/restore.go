package document

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
	"github.com/arcmed/arcmed_backend/pkg/email"
	"github.com/arcmed/arcmed_backend/pkg/logs"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
)

// Restore kicks off cold-storage restoration and a background poller
// that emails the tenant contact once the object becomes readable.
// Restoring a warm object is a no-op success.
func (s *service) Restore(ctx context.Context, caller scope.Caller, fileID uuid.UUID, tier objstore.RestoreTier) error {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionFileRestore); err != nil {
		return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}

	file, err := s.loadFile(ctx, caller, fileID)
	if err != nil {
		return err
	}
	if file.Status != model.FileStatusConfirmed {
		return apperr.From(apperr.KindConflict, ErrNotConfirmed)
	}

	info, err := s.store.Head(ctx, file.Key)
	if err != nil {
		return mapStoreErr(err)
	}
	if !info.IsCold {
		return nil
	}

	if info.RestoreState == objstore.RestoreNone {
		if err := s.store.InitiateRestore(ctx, file.Key, tier); err != nil {
			return mapStoreErr(err)
		}
	}

	s.rec.Record(ctx, audit.Entry{
		Category:   logs.CategoryActivity,
		Action:     model.AuditFileRestoreRequested,
		ActorID:    &caller.UserID,
		HospitalID: &file.HospitalID,
		EntityType: "file",
		EntityID:   &file.ID,
		Detail:     string(tier),
	})

	contact := ""
	if file.Patient != nil && file.Patient.Hospital != nil {
		contact = file.Patient.Hospital.ContactEmail
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pollRestore(*file, contact)
	}()

	return nil
}

// pollRestore heads the object on an interval until it becomes
// available, then delivers the decrypted bytes by email. Gives up after
// the configured number of iterations.
func (s *service) pollRestore(file model.File, contact string) {
	log := s.log.With("file_id", file.ID, "key", file.Key)

	interval := s.cfg.RestorePollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	iterations := s.cfg.RestorePollIterations
	if iterations <= 0 {
		iterations = 60
	}

	ctx, cancel := context.WithTimeout(context.Background(), interval*time.Duration(iterations+2))
	defer cancel()

	for i := 0; i < iterations; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		s.met.RestorePolls.Inc()

		info, err := s.store.Head(ctx, file.Key)
		if err != nil {
			log.Warn("restore poll head failed", "error", err)
			continue
		}
		if info.IsCold && info.RestoreState != objstore.RestoreAvailable {
			continue
		}

		result, err := s.fetchDecrypted(ctx, &file)
		if err != nil {
			log.Error("restored object fetch failed", "error", err)
			return
		}

		if contact == "" {
			log.Warn("restore finished but tenant has no contact email")
			return
		}
		msg := email.FileReady(contact, result.FileName, result.Content, result.ContentType)
		if err := s.mailer.Send(ctx, msg); err != nil {
			log.Error("file ready email failed", "error", err)
			return
		}
		s.met.EmailsSent.Inc()
		s.met.RestoreCompleted.Inc()
		log.Info("restore completed and emailed", "to", contact)
		return
	}

	log.Warn("restore polling gave up", "iterations", iterations)
}
