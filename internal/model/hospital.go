package model

// Hospital is the tenant boundary. Every business entity belongs to
// exactly one hospital or to the platform scope.
type Hospital struct {
	Base
	Name         string `gorm:"size:255;not null" json:"name"`
	ContactEmail string `gorm:"size:255;uniqueIndex;not null" json:"contact_email"`
	Tier         string `gorm:"size:50" json:"tier"`

	// Billing parameters. Files snapshot these at creation time.
	BasePrice      float64 `json:"base_price"`
	IncludedPages  int     `json:"included_pages"`
	ExtraPagePrice float64 `json:"extra_page_price"`

	// RegistrationFee is billed once, on the first invoice after signup.
	RegistrationFee     float64 `json:"registration_fee"`
	RegistrationFeePaid bool    `gorm:"default:false" json:"registration_fee_paid"`
	IsActive            bool `gorm:"default:true" json:"is_active"`

	// PendingUpdate holds a JSON payload of profile edits awaiting
	// platform approval.
	PendingUpdate string `gorm:"type:text" json:"pending_update,omitempty"`
}

// Pricing is the billing triple snapshotted onto each file.
type Pricing struct {
	BasePrice      float64
	IncludedPages  int
	ExtraPagePrice float64
}

func (h *Hospital) Pricing() Pricing {
	return Pricing{
		BasePrice:      h.BasePrice,
		IncludedPages:  h.IncludedPages,
		ExtraPagePrice: h.ExtraPagePrice,
	}
}
