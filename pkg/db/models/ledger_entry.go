package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
)

// LedgerEntry records an immutable fund movement. Every cent entering or
// leaving custody has exactly one row here.
type LedgerEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     *uuid.UUID            `gorm:"column:order_id;type:uuid;index:ix_ledger_entries_order"`
	AccountID   uuid.UUID             `gorm:"column:account_id;type:uuid;not null"`
	Type        enums.LedgerEntryType `gorm:"column:type;type:ledger_entry_type_enum;not null"`
	AmountCents int64                 `gorm:"column:amount_cents;not null"`
	Metadata    json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
