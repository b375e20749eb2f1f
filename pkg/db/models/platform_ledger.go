package models

import "time"

// PlatformLedgerID is the fixed primary key of the singleton platform row.
const PlatformLedgerID = 1

// PlatformLedger is the process-wide singleton carrying the order counter,
// the configurable fee percentage and the accrued, not-yet-withdrawn fees.
type PlatformLedger struct {
	ID              int       `gorm:"column:id;primaryKey"`
	OrdersCreated   int64     `gorm:"column:orders_created;not null;default:0"`
	FeePercent      int       `gorm:"column:fee_percent;not null;default:1"`
	FeeBalanceCents int64     `gorm:"column:fee_balance_cents;not null;default:0"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
