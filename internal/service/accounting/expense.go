package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/internal/apperr"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
)

// RecordExpense writes an expense voucher: a debit on the internal
// party, offset by a vendor credit when a vendor is linked.
func (s *service) RecordExpense(ctx context.Context, caller scope.Caller, req ExpenseRequest) (*model.Expense, error) {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionInvoiceWrite); err != nil {
		return nil, apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}
	if req.Amount <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "expense amount must be positive")
	}

	var vendor *model.Vendor
	if req.VendorID != nil {
		var v model.Vendor
		err := s.db.WithContext(ctx).Where("id = ?", *req.VendorID).First(&v).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.From(apperr.KindNotFound, ErrVendorNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("load vendor: %w", err)
		}
		vendor = &v
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	expense := model.Expense{
		FiscalYear:  s.fiscalYear,
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
		TaxAmount:   req.TaxAmount,
		VendorID:    req.VendorID,
	}
	gross := req.Amount + req.TaxAmount

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		value, rendered, err := nextNumber(tx, s.fiscalYear, model.SeriesExpense)
		if err != nil {
			return err
		}
		expense.Number = rendered
		expense.SeriesValue = value

		if err := tx.Create(&expense).Error; err != nil {
			return fmt.Errorf("create expense: %w", err)
		}

		debit := model.LedgerTransaction{
			PartyType:     model.PartyInternal,
			VoucherType:   model.VoucherExpense,
			VoucherNumber: expense.Number,
			Debit:         gross,
			Date:          date,
			Description:   req.Description,
		}
		if err := tx.Create(&debit).Error; err != nil {
			return err
		}

		if vendor != nil {
			credit := model.LedgerTransaction{
				PartyType:     model.PartyVendor,
				PartyID:       &vendor.ID,
				VoucherType:   model.VoucherExpense,
				VoucherNumber: expense.Number,
				Credit:        gross,
				Date:          date,
				Description:   fmt.Sprintf("%s (%s)", req.Description, vendor.Name),
			}
			if err := tx.Create(&credit).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &expense, nil
}

// Ledger returns a party's transactions ordered by date with a running
// balance of debit minus credit.
func (s *service) Ledger(ctx context.Context, caller scope.Caller, party model.PartyType, partyID *uuid.UUID) ([]LedgerLine, error) {
	if err := s.auth.MustEnforce(caller.Role, authorize.ActionLedgerRead); err != nil {
		return nil, apperr.From(apperr.KindForbidden, ErrRoleForbidden)
	}

	q := s.db.WithContext(ctx).Where("party_type = ?", party)
	if partyID != nil {
		q = q.Where("party_id = ?", *partyID)
	}

	var txs []model.LedgerTransaction
	if err := q.Order("date asc, created_at asc").Find(&txs).Error; err != nil {
		return nil, err
	}

	lines := make([]LedgerLine, 0, len(txs))
	balance := 0.0
	for _, t := range txs {
		balance += t.Debit - t.Credit
		lines = append(lines, LedgerLine{Transaction: t, Balance: balance})
	}
	return lines, nil
}
