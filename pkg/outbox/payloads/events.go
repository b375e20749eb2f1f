package payloads

import (
	"time"

	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
	"github.com/google/uuid"
)

// SupplierRegisteredEvent announces a new supplier directory listing.
type SupplierRegisteredEvent struct {
	AccountID   uuid.UUID `json:"account_id"`
	DisplayName string    `json:"display_name"`
}

// SupplierVerifiedEvent is emitted once when a supplier gains the verified badge.
type SupplierVerifiedEvent struct {
	AccountID  uuid.UUID `json:"account_id"`
	VerifiedAt time.Time `json:"verified_at"`
}

// AccountDepositedEvent records funds added to an account balance.
type AccountDepositedEvent struct {
	AccountID    uuid.UUID `json:"account_id"`
	AmountCents  int64     `json:"amount_cents"`
	BalanceCents int64     `json:"balance_cents"`
}

// OrderCreatedEvent signals that escrow was locked for a new order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SupplierID  uuid.UUID `json:"supplier_id"`
	TotalCents  int64     `json:"total_cents"`
}

// MilestoneAddedEvent reports a new milestone on a still-open order.
type MilestoneAddedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	MilestoneID   uuid.UUID `json:"milestone_id"`
	Position      int       `json:"position"`
	WeightPercent int       `json:"weight_percent"`
}

// OrderStartedEvent marks the transition into active work.
type OrderStartedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	StartedAt time.Time `json:"started_at"`
}

// MilestoneCompletedEvent is emitted when the supplier reports delivery.
type MilestoneCompletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	MilestoneID uuid.UUID `json:"milestone_id"`
	Position    int       `json:"position"`
}

// MilestoneApprovedEvent is emitted when the buyer signs off a milestone.
type MilestoneApprovedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	MilestoneID uuid.UUID `json:"milestone_id"`
	Position    int       `json:"position"`
}

// PaymentReleasedEvent records escrow moving to the supplier, net of fee.
type PaymentReleasedEvent struct {
	OrderID            uuid.UUID `json:"order_id"`
	MilestoneID        uuid.UUID `json:"milestone_id"`
	SupplierID         uuid.UUID `json:"supplier_id"`
	PaymentCents       int64     `json:"payment_cents"`
	FeeCents           int64     `json:"fee_cents"`
	SupplierShareCents int64     `json:"supplier_share_cents"`
}

// DisputeRaisedEvent freezes an order pending arbitration.
type DisputeRaisedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	RaisedBy uuid.UUID `json:"raised_by"`
	Reason   string    `json:"reason"`
}

// DisputeResolvedEvent records the arbiter's ruling and fund movements.
type DisputeResolvedEvent struct {
	OrderID            uuid.UUID         `json:"order_id"`
	ArbiterID          uuid.UUID         `json:"arbiter_id"`
	FavorSupplier      bool              `json:"favor_supplier"`
	SupplierShareCents int64             `json:"supplier_share_cents"`
	BuyerRefundCents   int64             `json:"buyer_refund_cents"`
	FeeCents           int64             `json:"fee_cents"`
	FinalStatus        enums.OrderStatus `json:"final_status"`
}

// OrderCompletedEvent marks the terminal success state.
type OrderCompletedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	SupplierID uuid.UUID `json:"supplier_id"`
	PaidCents  int64     `json:"paid_cents"`
	ClosedAt   time.Time `json:"closed_at"`
}

// OrderCancelledEvent marks the terminal cancel state with any refund issued.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	RefundCents int64     `json:"refund_cents"`
	ClosedAt    time.Time `json:"closed_at"`
}

// FeePercentUpdatedEvent records a platform fee change by the arbiter.
type FeePercentUpdatedEvent struct {
	OldPercent int `json:"old_percent"`
	NewPercent int `json:"new_percent"`
}

// FeesWithdrawnEvent records the accrued fee balance being drained.
type FeesWithdrawnEvent struct {
	ArbiterID   uuid.UUID `json:"arbiter_id"`
	AmountCents int64     `json:"amount_cents"`
}
