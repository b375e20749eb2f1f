package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
)

// Order is the escrow aggregate. TotalCents is fixed at creation; PaidCents
// only grows, and never past TotalCents. The difference is the amount still
// held in escrow custody while the order is live.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber   int64             `gorm:"column:order_number;uniqueIndex:ux_orders_number;not null"`
	BuyerID       uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	SupplierID    uuid.UUID         `gorm:"column:supplier_id;type:uuid;not null"`
	Description   string            `gorm:"column:description;not null"`
	TotalCents    int64             `gorm:"column:total_cents;not null"`
	PaidCents     int64             `gorm:"column:paid_cents;not null;default:0"`
	Status        enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null;default:'created'"`
	DisputeRaised bool              `gorm:"column:dispute_raised;not null;default:false"`
	DisputeReason *string           `gorm:"column:dispute_reason"`
	Milestones    []Milestone       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StartedAt     *time.Time        `gorm:"column:started_at"`
	ClosedAt      *time.Time        `gorm:"column:closed_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingCents is the escrow balance still distributable on dispute or
// refundable on cancel.
func (o Order) RemainingCents() int64 {
	return o.TotalCents - o.PaidCents
}
