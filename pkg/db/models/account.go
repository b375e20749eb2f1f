package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
)

// Account is an authenticated platform identity holding a fundable balance.
// Escrow locks draw from AvailableCents; releases and refunds credit it.
type Account struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string            `gorm:"column:email;uniqueIndex:ux_accounts_email;not null"`
	PasswordHash   string            `gorm:"column:password_hash;not null"`
	Role           enums.AccountRole `gorm:"column:role;type:account_role_enum;not null;default:'member'"`
	AvailableCents int64             `gorm:"column:available_cents;not null;default:0"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
