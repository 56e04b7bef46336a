package document

import (
	"context"

	"github.com/google/uuid"

	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
	"github.com/arcmed/arcmed_backend/pkg/logs"
)

// DiscardDraft removes a draft without the deletion workflow. Any user
// of the owning tenant may discard; confirmed files must go through the
// workflow.
func (s *service) DiscardDraft(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error {
	// no capability gate: the tenant scope on loadFile is the only
	// restriction for drafts
	file, err := s.loadFile(ctx, caller, fileID)
	if err != nil {
		return err
	}
	if file.Status != model.FileStatusDraft {
		return apperr.From(apperr.KindConflict, ErrNotDraft)
	}

	return s.purge(ctx, caller, file, "draft discarded")
}

// Delete is the immediate hard delete available to hospital admins and
// platform supers, from any deletion step.
func (s *service) Delete(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionFileDeleteImmediate); err != nil {
		return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}

	file, err := s.loadFile(ctx, caller, fileID)
	if err != nil {
		return err
	}
	return s.purge(ctx, caller, file, "immediate delete")
}

// RequestDeletion marks a confirmed file as pending deletion, awaiting
// hospital-admin approval.
func (s *service) RequestDeletion(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionFileRequestDelete); err != nil {
		return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}

	file, err := s.loadFile(ctx, caller, fileID)
	if err != nil {
		return err
	}
	if file.Status != model.FileStatusConfirmed {
		return apperr.From(apperr.KindConflict, ErrNotConfirmed)
	}
	if file.DeletionStep != model.DeletionNone {
		return apperr.From(apperr.KindConflict, ErrDeletionRequested)
	}

	if err := s.db.WithContext(ctx).Model(&model.File{}).
		Where("id = ?", file.ID).
		Updates(map[string]any{
			"deletion_step":    model.DeletionRequested,
			"deletion_pending": true,
		}).Error; err != nil {
		return err
	}

	s.rec.Record(ctx, audit.Entry{
		Category:   logs.CategoryActivity,
		Action:     model.AuditFileDeletionRequested,
		ActorID:    &caller.UserID,
		HospitalID: &file.HospitalID,
		EntityType: "file",
		EntityID:   &file.ID,
	})
	return nil
}

// ApproveDeletion advances a deletion request. With intermediate=true a
// hospital admin records the approval without purging yet; otherwise the
// file is hard-deleted.
func (s *service) ApproveDeletion(ctx context.Context, caller scope.Caller, fileID uuid.UUID, intermediate bool) error {
	file, err := s.loadFile(ctx, caller, fileID)
	if err != nil {
		return err
	}
	if file.DeletionStep == model.DeletionNone {
		return apperr.From(apperr.KindConflict, ErrNoDeletionRequest)
	}

	if intermediate {
		if err := s.auth.MustEnforce(caller.Role, authorize.ActionFileHospitalApprove); err != nil {
			return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
		}
		if file.DeletionStep != model.DeletionRequested {
			return apperr.From(apperr.KindConflict, ErrNoDeletionRequest)
		}
		if err := s.db.WithContext(ctx).Model(&model.File{}).
			Where("id = ?", file.ID).
			Update("deletion_step", model.DeletionHospitalApproved).Error; err != nil {
			return err
		}
		s.rec.Record(ctx, audit.Entry{
			Category:   logs.CategoryActivity,
			Action:     model.AuditFileDeletionApproved,
			ActorID:    &caller.UserID,
			HospitalID: &file.HospitalID,
			EntityType: "file",
			EntityID:   &file.ID,
			Detail:     "hospital approval recorded",
		})
		return nil
	}

	if err := s.auth.MustEnforce(caller.Role, authorize.ActionFileApproveDelete); err != nil {
		return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}
	return s.purge(ctx, caller, file, "deletion approved")
}

// RejectDeletion clears the pending request from any step.
func (s *service) RejectDeletion(ctx context.Context, caller scope.Caller, fileID uuid.UUID) error {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionFileRejectDelete); err != nil {
		return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}

	file, err := s.loadFile(ctx, caller, fileID)
	if err != nil {
		return err
	}
	if file.DeletionStep == model.DeletionNone {
		return apperr.From(apperr.KindConflict, ErrNoDeletionRequest)
	}

	if err := s.db.WithContext(ctx).Model(&model.File{}).
		Where("id = ?", file.ID).
		Updates(map[string]any{
			"deletion_step":    model.DeletionNone,
			"deletion_pending": false,
		}).Error; err != nil {
		return err
	}

	s.rec.Record(ctx, audit.Entry{
		Category:   logs.CategoryActivity,
		Action:     model.AuditFileDeletionRejected,
		ActorID:    &caller.UserID,
		HospitalID: &file.HospitalID,
		EntityType: "file",
		EntityID:   &file.ID,
	})
	return nil
}

// purge removes the object then the row. A transient store failure
// keeps the row so the delete can be retried.
func (s *service) purge(ctx context.Context, caller scope.Caller, file *model.File, detail string) error {
	if file.Key != "" {
		if err := s.store.Delete(ctx, file.Key); err != nil {
			return mapStoreErr(err)
		}
	}

	if err := s.db.WithContext(ctx).Delete(&model.File{}, "id = ?", file.ID).Error; err != nil {
		return err
	}

	s.rec.Record(ctx, audit.Entry{
		Category:   logs.CategoryActivity,
		Action:     model.AuditFileDeleted,
		ActorID:    &caller.UserID,
		HospitalID: &file.HospitalID,
		EntityType: "file",
		EntityID:   &file.ID,
		Detail:     detail,
	})
	return nil
}
