package model

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "PENDING"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// Series identifies a voucher-numbering sequence. Each keeps its own
// prefix and counter per fiscal year.
type Series string

const (
	SeriesGST     Series = "gst"
	SeriesNonGST  Series = "nongst"
	SeriesReceipt Series = "receipt"
	SeriesExpense Series = "expense"
)

type Invoice struct {
	Base
	HospitalID uuid.UUID `gorm:"type:uuid;not null;index" json:"hospital_id"`
	Hospital   *Hospital `gorm:"foreignKey:HospitalID" json:"-"`

	// Number is the rendered human-readable voucher number, globally
	// unique. SeriesValue keeps the raw integer for recycling.
	Number      string `gorm:"size:100;uniqueIndex;not null" json:"number"`
	Series      Series `gorm:"size:20;not null;index" json:"series"`
	FiscalYear  string `gorm:"size:20;not null;index" json:"fiscal_year"`
	SeriesValue int    `json:"series_value"`

	IssueDate time.Time  `json:"issue_date"`
	DueDate   *time.Time `json:"due_date,omitempty"`

	Subtotal float64 `json:"subtotal"`
	TaxRate  float64 `json:"tax_rate"`
	Total    float64 `json:"total"`

	Status InvoiceStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	IsGST  bool          `json:"is_gst"`

	PaymentMethod    string     `gorm:"size:100" json:"payment_method,omitempty"`
	PaymentReference string     `gorm:"size:255" json:"payment_reference,omitempty"`
	PaymentDate      *time.Time `json:"payment_date,omitempty"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

type InvoiceItem struct {
	Base
	InvoiceID uuid.UUID `gorm:"type:uuid;not null;index" json:"invoice_id"`

	// FileID is set for per-file archival charges, nil for custom lines.
	FileID *uuid.UUID `gorm:"type:uuid;index" json:"file_id,omitempty"`

	Description string  `gorm:"size:512;not null" json:"description"`
	HSN         string  `gorm:"size:20" json:"hsn"`
	Amount      float64 `json:"amount"`
	Discount    float64 `json:"discount"`
}

type PartyType string

const (
	PartyHospital PartyType = "HOSPITAL"
	PartyVendor   PartyType = "VENDOR"
	PartyInternal PartyType = "INTERNAL"
)

type VoucherType string

const (
	VoucherInvoice VoucherType = "INVOICE"
	VoucherReceipt VoucherType = "RECEIPT"
	VoucherExpense VoucherType = "EXPENSE"
)

type LedgerTransaction struct {
	Base
	PartyType PartyType `gorm:"size:20;not null;index:idx_ledger_party" json:"party_type"`
	// PartyID is nil for INTERNAL.
	PartyID *uuid.UUID `gorm:"type:uuid;index:idx_ledger_party" json:"party_id,omitempty"`

	VoucherType   VoucherType `gorm:"size:20;not null" json:"voucher_type"`
	VoucherNumber string      `gorm:"size:100;not null;index" json:"voucher_number"`

	Debit  float64   `json:"debit"`
	Credit float64   `json:"credit"`
	Date   time.Time `gorm:"index" json:"date"`

	Description string `gorm:"size:512" json:"description"`
}

// AvailableNumber is a recycled voucher-number slot freed by invoice
// deletion, reused before the counter advances.
type AvailableNumber struct {
	Base
	FiscalYear string `gorm:"size:20;not null;uniqueIndex:idx_available_number" json:"fiscal_year"`
	Series     Series `gorm:"size:20;not null;uniqueIndex:idx_available_number" json:"series"`
	Value      int    `gorm:"not null;uniqueIndex:idx_available_number" json:"value"`
}

// NumberingState is the accounting singleton: fiscal year, per-series
// prefixes and next-counters, company identity for invoice rendering.
type NumberingState struct {
	Base
	FiscalYear string `gorm:"size:20;not null" json:"fiscal_year"`

	// Format renders voucher numbers with {prefix}, {fy} and {number}
	// placeholders. Seeded by `system init`, default {prefix}/{fy}/{number}.
	Format string `gorm:"size:100;not null" json:"format"`

	GSTPrefix      string `gorm:"size:20" json:"gst_prefix"`
	GSTCounter     int    `gorm:"default:1" json:"gst_counter"`
	NonGSTPrefix   string `gorm:"size:20" json:"nongst_prefix"`
	NonGSTCounter  int    `gorm:"default:1" json:"nongst_counter"`
	ReceiptPrefix  string `gorm:"size:20" json:"receipt_prefix"`
	ReceiptCounter int    `gorm:"default:1" json:"receipt_counter"`
	ExpensePrefix  string `gorm:"size:20" json:"expense_prefix"`
	ExpenseCounter int    `gorm:"default:1" json:"expense_counter"`

	CompanyName string `gorm:"size:255" json:"company_name"`
	GSTIN       string `gorm:"size:50" json:"gstin"`
	BankDetails string `gorm:"type:text" json:"bank_details"`
}

// DefaultNumberingState is the singleton seeded at install time.
func DefaultNumberingState(fiscalYear string) NumberingState {
	return NumberingState{
		FiscalYear:     fiscalYear,
		Format:         "{prefix}/{fy}/{number}",
		GSTPrefix:      "INV",
		GSTCounter:     1,
		NonGSTPrefix:   "BOS",
		NonGSTCounter:  1,
		ReceiptPrefix:  "RCT",
		ReceiptCounter: 1,
		ExpensePrefix:  "EXP",
		ExpenseCounter: 1,
	}
}

// PrefixFor returns the configured prefix for a series.
func (n *NumberingState) PrefixFor(s Series) string {
	switch s {
	case SeriesGST:
		return n.GSTPrefix
	case SeriesNonGST:
		return n.NonGSTPrefix
	case SeriesReceipt:
		return n.ReceiptPrefix
	case SeriesExpense:
		return n.ExpensePrefix
	}
	return ""
}

// CounterFor returns the next-counter for a series.
func (n *NumberingState) CounterFor(s Series) int {
	switch s {
	case SeriesGST:
		return n.GSTCounter
	case SeriesNonGST:
		return n.NonGSTCounter
	case SeriesReceipt:
		return n.ReceiptCounter
	case SeriesExpense:
		return n.ExpenseCounter
	}
	return 0
}

// SetCounterFor stores the next-counter for a series.
func (n *NumberingState) SetCounterFor(s Series, v int) {
	switch s {
	case SeriesGST:
		n.GSTCounter = v
	case SeriesNonGST:
		n.NonGSTCounter = v
	case SeriesReceipt:
		n.ReceiptCounter = v
	case SeriesExpense:
		n.ExpenseCounter = v
	}
}

type Vendor struct {
	Base
	Name         string `gorm:"size:255;not null" json:"name"`
	GSTIN        string `gorm:"size:50" json:"gstin"`
	ContactEmail string `gorm:"size:255" json:"contact_email"`
	ContactPhone string `gorm:"size:50" json:"contact_phone"`
}

type Expense struct {
	Base
	Number      string     `gorm:"size:100;uniqueIndex;not null" json:"number"`
	FiscalYear  string     `gorm:"size:20;not null" json:"fiscal_year"`
	SeriesValue int        `json:"series_value"`
	Date        time.Time  `json:"date"`
	Description string     `gorm:"size:512" json:"description"`
	Amount      float64    `json:"amount"`
	TaxAmount   float64    `json:"tax_amount"`
	VendorID    *uuid.UUID `gorm:"type:uuid;index" json:"vendor_id,omitempty"`
	Vendor      *Vendor    `gorm:"foreignKey:VendorID" json:"-"`
}
