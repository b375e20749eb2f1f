package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
)

// RegisterRequest carries the fields needed to create an account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest carries the credentials for token exchange.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the minted access token with the account summary.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	Account     AccountSummary `json:"account"`
}

// DepositRequest adds funds to the caller's balance.
type DepositRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

// AccountSummary is the public shape of an account. Available renders the
// cent balance as a fixed two-decimal string.
type AccountSummary struct {
	ID        uuid.UUID         `json:"id"`
	Email     string            `json:"email"`
	Role      enums.AccountRole `json:"role"`
	Available string            `json:"available"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewAccountSummary maps a model onto its API representation.
func NewAccountSummary(account *models.Account) AccountSummary {
	return AccountSummary{
		ID:        account.ID,
		Email:     account.Email,
		Role:      account.Role,
		Available: FormatCents(account.AvailableCents),
		CreatedAt: account.CreatedAt,
	}
}

// FormatCents renders an integer cent amount as a decimal money string.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
