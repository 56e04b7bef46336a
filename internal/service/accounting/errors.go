package accounting

import "errors"

var (
	ErrHospitalNotFound    = errors.New("hospital not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrVendorNotFound      = errors.New("vendor not found")
	ErrNoBillableItems     = errors.New("no billable files or custom items")
	ErrNumberTaken         = errors.New("invoice number already in use")
	ErrInvoiceNotPending   = errors.New("invoice is not pending")
	ErrPaidInvoiceDelete   = errors.New("paid invoices cannot be deleted")
	ErrNumberingMissing    = errors.New("accounting numbering state not initialized")
	ErrFileNotBillable     = errors.New("file is not confirmed and unpaid")
	ErrUnknownSeries       = errors.New("unknown voucher series")
	ErrRoleForbidden       = errors.New("role is not permitted to perform this action")
	ErrWrongFiscalYearRows = errors.New("numbering state fiscal year mismatch")
)
