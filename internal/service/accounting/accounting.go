// Package accounting implements voucher numbering with gap recycling,
// invoice generation from archived files, payment reception, expenses,
// and the double-entry ledger.
package accounting

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/config"
	"github.com/arcmed/arcmed_backend/internal/audit"
	"github.com/arcmed/arcmed_backend/internal/metrics"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/scope"
	"github.com/arcmed/arcmed_backend/pkg/authorize"
)

// GSTRate is the tax percentage applied to GST invoices.
const GSTRate = 18.0

type CustomItem struct {
	Description string  `json:"description"`
	HSN         string  `json:"hsn"`
	Amount      float64 `json:"amount"`
	Discount    float64 `json:"discount"`
}

type GenerateRequest struct {
	HospitalID     uuid.UUID    `json:"hospital_id"`
	FileIDs        []uuid.UUID  `json:"file_ids"`
	CustomItems    []CustomItem `json:"custom_items"`
	IsGST          bool         `json:"is_gst"`
	ExplicitNumber string       `json:"explicit_number"`
	DueDate        *time.Time   `json:"due_date"`
}

type PaymentInfo struct {
	Method    string     `json:"method"`
	Reference string     `json:"reference"`
	Date      *time.Time `json:"date"`
}

type ExpenseRequest struct {
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	TaxAmount   float64    `json:"tax_amount"`
	Date        *time.Time `json:"date"`
	VendorID    *uuid.UUID `json:"vendor_id"`
}

type LedgerLine struct {
	Transaction model.LedgerTransaction `json:"transaction"`
	Balance     float64                 `json:"balance"`
}

type Service interface {
	Generate(ctx context.Context, caller scope.Caller, req GenerateRequest) (*model.Invoice, error)
	ReceivePayment(ctx context.Context, caller scope.Caller, invoiceID uuid.UUID, payment PaymentInfo) (*model.Invoice, error)
	DeleteInvoice(ctx context.Context, caller scope.Caller, invoiceID uuid.UUID) error
	GetInvoice(ctx context.Context, caller scope.Caller, invoiceID uuid.UUID) (*model.Invoice, error)
	ListInvoices(ctx context.Context, caller scope.Caller) ([]model.Invoice, error)

	RecordExpense(ctx context.Context, caller scope.Caller, req ExpenseRequest) (*model.Expense, error)
	Ledger(ctx context.Context, caller scope.Caller, party model.PartyType, partyID *uuid.UUID) ([]LedgerLine, error)
}

type service struct {
	db   *gorm.DB
	auth *authorize.Authorizer
	rec  *audit.Recorder
	met  *metrics.Metrics
	log  *slog.Logger

	fiscalYear string
}

func New(db *gorm.DB, auth *authorize.Authorizer, rec *audit.Recorder, met *metrics.Metrics,
	log *slog.Logger, cfg *config.Config) Service {
	return &service{
		db:         db,
		auth:       auth,
		rec:        rec,
		met:        met,
		log:        log.With("component", "accounting"),
		fiscalYear: cfg.Accounting.FiscalYear,
	}
}
