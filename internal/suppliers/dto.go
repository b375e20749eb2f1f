package suppliers

import (
	"time"

	"github.com/google/uuid"

	"github.com/Smartdevs17/supply-chain-payment/internal/accounts"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
)

// RegisterRequest lists a supplier in the directory.
type RegisterRequest struct {
	DisplayName  string   `json:"display_name" validate:"required,min=2,max=120"`
	ContactEmail string   `json:"contact_email" validate:"required,email"`
	ContactTags  []string `json:"contact_tags" validate:"max=10,dive,min=1,max=40"`
}

// ListQuery filters the supplier directory.
type ListQuery struct {
	VerifiedOnly bool
	Limit        int
	Offset       int
}

// SupplierSummary is the public shape of a directory listing.
type SupplierSummary struct {
	AccountID       uuid.UUID  `json:"account_id"`
	DisplayName     string     `json:"display_name"`
	ContactEmail    string     `json:"contact_email"`
	ContactTags     []string   `json:"contact_tags,omitempty"`
	Verified        bool       `json:"verified"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	OrdersCompleted int64      `json:"orders_completed"`
	TotalEarned     string     `json:"total_earned"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewSupplierSummary maps a model onto its API representation.
func NewSupplierSummary(supplier *models.Supplier) SupplierSummary {
	return SupplierSummary{
		AccountID:       supplier.AccountID,
		DisplayName:     supplier.DisplayName,
		ContactEmail:    supplier.ContactEmail,
		ContactTags:     supplier.ContactTags,
		Verified:        supplier.Verified,
		VerifiedAt:      supplier.VerifiedAt,
		OrdersCompleted: supplier.OrdersCompleted,
		TotalEarned:     accounts.FormatCents(supplier.TotalEarnedCents),
		CreatedAt:       supplier.CreatedAt,
	}
}
