package accounting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
	"github.com/arcmed/arcmed_backend/pkg/logs"
)

const registrationFeeDescription = "Registration Fee"

// Generate creates an invoice for a set of confirmed, unpaid files plus
// optional custom lines. Per-file cost always uses the pricing snapshot
// captured at upload time, never the hospital's current rates.
func (s *service) Generate(ctx context.Context, caller scope.Caller, req GenerateRequest) (*model.Invoice, error) {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionInvoiceWrite); err != nil {
		return nil, apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}

	var hospital model.Hospital
	err := s.db.WithContext(ctx).Where("id = ?", req.HospitalID).First(&hospital).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.From(apperr.KindNotFound, ErrHospitalNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load hospital: %w", err)
	}

	var files []model.File
	if len(req.FileIDs) > 0 {
		if err := s.db.WithContext(ctx).
			Where("id IN ? AND hospital_id = ?", req.FileIDs, hospital.ID).
			Find(&files).Error; err != nil {
			return nil, fmt.Errorf("load files: %w", err)
		}
		if len(files) != len(req.FileIDs) {
			return nil, apperr.From(apperr.KindNotFound, ErrFileNotBillable)
		}
		for _, f := range files {
			if f.Status != model.FileStatusConfirmed || f.IsPaid {
				return nil, apperr.From(apperr.KindConflict, ErrFileNotBillable).
					With("file_id", f.ID.String())
			}
		}
	}
	if len(files) == 0 && len(req.CustomItems) == 0 {
		return nil, apperr.From(apperr.KindInvalidInput, ErrNoBillableItems)
	}

	series := model.SeriesNonGST
	taxRate := 0.0
	if req.IsGST {
		series = model.SeriesGST
		taxRate = GSTRate
	}

	items := make([]model.InvoiceItem, 0, len(files)+len(req.CustomItems)+1)
	for i := range files {
		f := files[i]
		items = append(items, model.InvoiceItem{
			FileID:      &f.ID,
			Description: fmt.Sprintf("Archival: %s (%d pages)", f.OriginalName, f.PageCount),
			HSN:         "998599",
			Amount:      f.Cost(),
		})
	}
	addedRegistrationFee := false
	if !hospital.RegistrationFeePaid && hospital.RegistrationFee > 0 {
		items = append(items, model.InvoiceItem{
			Description: registrationFeeDescription,
			HSN:         "998599",
			Amount:      hospital.RegistrationFee,
		})
		addedRegistrationFee = true
	}
	for _, ci := range req.CustomItems {
		items = append(items, model.InvoiceItem{
			Description: ci.Description,
			HSN:         ci.HSN,
			Amount:      ci.Amount,
			Discount:    ci.Discount,
		})
	}

	subtotal := 0.0
	for _, it := range items {
		subtotal += it.Amount - it.Discount
	}
	tax := subtotal * taxRate / 100
	total := math.Round(subtotal + tax)

	invoice := model.Invoice{
		HospitalID: hospital.ID,
		Series:     series,
		FiscalYear: s.fiscalYear,
		IssueDate:  time.Now(),
		DueDate:    req.DueDate,
		Subtotal:   subtotal,
		TaxRate:    taxRate,
		Total:      total,
		Status:     model.InvoicePending,
		IsGST:      req.IsGST,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.ExplicitNumber != "" {
			var count int64
			if err := tx.Model(&model.Invoice{}).Where("number = ?", req.ExplicitNumber).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperr.From(apperr.KindConflict, ErrNumberTaken).With("number", req.ExplicitNumber)
			}
			invoice.Number = req.ExplicitNumber
			invoice.SeriesValue = 0
		} else {
			value, rendered, err := nextNumber(tx, s.fiscalYear, series)
			if err != nil {
				return err
			}
			var count int64
			if err := tx.Model(&model.Invoice{}).Where("number = ?", rendered).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperr.From(apperr.KindConflict, ErrNumberTaken).With("number", rendered)
			}
			invoice.Number = rendered
			invoice.SeriesValue = value
		}

		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("create items: %w", err)
		}

		if addedRegistrationFee {
			if err := tx.Model(&model.Hospital{}).
				Where("id = ?", hospital.ID).
				Update("registration_fee_paid", true).Error; err != nil {
				return err
			}
		}

		ledger := model.LedgerTransaction{
			PartyType:     model.PartyHospital,
			PartyID:       &hospital.ID,
			VoucherType:   model.VoucherInvoice,
			VoucherNumber: invoice.Number,
			Debit:         total,
			Date:          invoice.IssueDate,
			Description:   fmt.Sprintf("Invoice %s for %s", invoice.Number, hospital.Name),
		}
		return tx.Create(&ledger).Error
	})
	if err != nil {
		return nil, err
	}

	invoice.Items = items
	s.met.InvoicesCreated.Inc()
	s.rec.Record(ctx, audit.Entry{
		Category:   logs.CategoryActivity,
		Action:     model.AuditInvoiceCreated,
		ActorID:    &caller.UserID,
		HospitalID: &hospital.ID,
		EntityType: "invoice",
		EntityID:   &invoice.ID,
		Detail:     invoice.Number,
	})
	return &invoice, nil
}

// ReceivePayment flips a pending invoice to PAID, marks the referenced
// files paid, and writes the receipt transaction.
func (s *service) ReceivePayment(ctx context.Context, caller scope.Caller, invoiceID uuid.UUID, payment PaymentInfo) (*model.Invoice, error) {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionInvoiceWrite); err != nil {
		return nil, apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}

	var invoice model.Invoice
	err := s.db.WithContext(ctx).
		Scopes(scope.ForCaller(caller)).
		Preload("Items").
		Where("id = ?", invoiceID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.From(apperr.KindNotFound, ErrInvoiceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load invoice: %w", err)
	}
	if invoice.Status != model.InvoicePending {
		return nil, apperr.From(apperr.KindConflict, ErrInvoiceNotPending)
	}

	paidAt := time.Now()
	if payment.Date != nil {
		paidAt = *payment.Date
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Invoice{}).
			Where("id = ?", invoice.ID).
			Updates(map[string]any{
				"status":            model.InvoicePaid,
				"payment_method":    payment.Method,
				"payment_reference": payment.Reference,
				"payment_date":      paidAt,
			}).Error; err != nil {
			return err
		}

		fileIDs := make([]uuid.UUID, 0, len(invoice.Items))
		for _, it := range invoice.Items {
			if it.FileID != nil {
				fileIDs = append(fileIDs, *it.FileID)
			}
		}
		if len(fileIDs) > 0 {
			if err := tx.Model(&model.File{}).
				Where("id IN ?", fileIDs).
				Updates(map[string]any{"is_paid": true, "paid_at": paidAt}).Error; err != nil {
				return err
			}
		}

		_, receiptNumber, err := nextNumber(tx, s.fiscalYear, model.SeriesReceipt)
		if err != nil {
			return err
		}
		receipt := model.LedgerTransaction{
			PartyType:     model.PartyHospital,
			PartyID:       &invoice.HospitalID,
			VoucherType:   model.VoucherReceipt,
			VoucherNumber: receiptNumber,
			Credit:        invoice.Total,
			Date:          paidAt,
			Description:   fmt.Sprintf("Payment for invoice %s", invoice.Number),
		}
		return tx.Create(&receipt).Error
	})
	if err != nil {
		return nil, err
	}

	invoice.Status = model.InvoicePaid
	invoice.PaymentMethod = payment.Method
	invoice.PaymentReference = payment.Reference
	invoice.PaymentDate = &paidAt

	s.rec.Record(ctx, audit.Entry{
		Category:   logs.CategoryActivity,
		Action:     model.AuditInvoicePaid,
		ActorID:    &caller.UserID,
		HospitalID: &invoice.HospitalID,
		EntityType: "invoice",
		EntityID:   &invoice.ID,
		Detail:     invoice.Number,
	})
	return &invoice, nil
}

// DeleteInvoice removes a non-paid invoice, recycles its number, undoes
// its side effects, and resets numbering when no invoices remain.
func (s *service) DeleteInvoice(ctx context.Context, caller scope.Caller, invoiceID uuid.UUID) error {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionInvoiceDelete); err != nil {
		return apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}

	var invoice model.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", invoiceID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.From(apperr.KindNotFound, ErrInvoiceNotFound)
	}
	if err != nil {
		return fmt.Errorf("load invoice: %w", err)
	}
	if invoice.Status == model.InvoicePaid {
		return apperr.From(apperr.KindConflict, ErrPaidInvoiceDelete)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := releaseNumber(tx, invoice.FiscalYear, invoice.Series, invoice.SeriesValue); err != nil {
			return err
		}

		if err := tx.Where("voucher_number = ?", invoice.Number).
			Delete(&model.LedgerTransaction{}).Error; err != nil {
			return err
		}

		fileIDs := make([]uuid.UUID, 0, len(invoice.Items))
		revertRegistration := false
		for _, it := range invoice.Items {
			if it.FileID != nil {
				fileIDs = append(fileIDs, *it.FileID)
			}
			if it.Description == registrationFeeDescription {
				revertRegistration = true
			}
		}
		if len(fileIDs) > 0 {
			if err := tx.Model(&model.File{}).
				Where("id IN ?", fileIDs).
				Updates(map[string]any{"is_paid": false, "paid_at": nil}).Error; err != nil {
				return err
			}
		}
		if revertRegistration {
			if err := tx.Model(&model.Hospital{}).
				Where("id = ?", invoice.HospitalID).
				Update("registration_fee_paid", false).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&model.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Invoice{}, "id = ?", invoice.ID).Error; err != nil {
			return err
		}

		return resetIfEmpty(tx)
	})
	if err != nil {
		return err
	}

	s.met.InvoicesDeleted.Inc()
	s.rec.Record(ctx, audit.Entry{
		Category:   logs.CategoryActivity,
		Action:     model.AuditInvoiceDeleted,
		ActorID:    &caller.UserID,
		HospitalID: &invoice.HospitalID,
		EntityType: "invoice",
		EntityID:   &invoice.ID,
		Detail:     invoice.Number,
	})
	return nil
}

func (s *service) GetInvoice(ctx context.Context, caller scope.Caller, invoiceID uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := s.db.WithContext(ctx).
		Scopes(scope.ForCaller(caller)).
		Preload("Items").
		Where("id = ?", invoiceID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.From(apperr.KindNotFound, ErrInvoiceNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *service) ListInvoices(ctx context.Context, caller scope.Caller) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := s.db.WithContext(ctx).
		Scopes(scope.ForCaller(caller)).
		Order("created_at desc").
		Find(&invoices).Error
	return invoices, err
}
