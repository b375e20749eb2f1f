package escrow

import (
	"time"

	"github.com/google/uuid"

	"github.com/Smartdevs17/supply-chain-payment/internal/accounts"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
)

// CreateOrderRequest locks the full order value in escrow at creation.
type CreateOrderRequest struct {
	SupplierID  uuid.UUID `json:"supplier_id" validate:"required"`
	Description string    `json:"description" validate:"required,min=3,max=500"`
	TotalCents  int64     `json:"total_cents" validate:"required,gt=0"`
}

// AddMilestoneRequest appends a weighted milestone to a not-yet-started order.
type AddMilestoneRequest struct {
	Description   string `json:"description" validate:"required,min=3,max=300"`
	WeightPercent int    `json:"weight_percent" validate:"required,gt=0,lte=100"`
}

// MilestoneView is the public shape of a milestone.
type MilestoneView struct {
	ID            uuid.UUID  `json:"id"`
	Position      int        `json:"position"`
	Description   string     `json:"description"`
	WeightPercent int        `json:"weight_percent"`
	Completed     bool       `json:"completed"`
	Approved      bool       `json:"approved"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
}

// OrderView is the public shape of an order with its milestones.
type OrderView struct {
	ID            uuid.UUID         `json:"id"`
	OrderNumber   int64             `json:"order_number"`
	BuyerID       uuid.UUID         `json:"buyer_id"`
	SupplierID    uuid.UUID         `json:"supplier_id"`
	Description   string            `json:"description"`
	Total         string            `json:"total"`
	Paid          string            `json:"paid"`
	Remaining     string            `json:"remaining"`
	Status        enums.OrderStatus `json:"status"`
	DisputeRaised bool              `json:"dispute_raised"`
	DisputeReason *string           `json:"dispute_reason,omitempty"`
	Milestones    []MilestoneView   `json:"milestones"`
	StartedAt     *time.Time        `json:"started_at,omitempty"`
	ClosedAt      *time.Time        `json:"closed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewMilestoneView maps a model onto its API representation.
func NewMilestoneView(m *models.Milestone) MilestoneView {
	return MilestoneView{
		ID:            m.ID,
		Position:      m.Position,
		Description:   m.Description,
		WeightPercent: m.WeightPercent,
		Completed:     m.Completed,
		Approved:      m.Approved,
		CompletedAt:   m.CompletedAt,
		ApprovedAt:    m.ApprovedAt,
	}
}

// NewOrderView maps an order and its milestones onto the API representation.
func NewOrderView(order *models.Order) OrderView {
	milestones := make([]MilestoneView, 0, len(order.Milestones))
	for i := range order.Milestones {
		milestones = append(milestones, NewMilestoneView(&order.Milestones[i]))
	}
	return OrderView{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		BuyerID:       order.BuyerID,
		SupplierID:    order.SupplierID,
		Description:   order.Description,
		Total:         accounts.FormatCents(order.TotalCents),
		Paid:          accounts.FormatCents(order.PaidCents),
		Remaining:     accounts.FormatCents(order.RemainingCents()),
		Status:        order.Status,
		DisputeRaised: order.DisputeRaised,
		DisputeReason: order.DisputeReason,
		Milestones:    milestones,
		StartedAt:     order.StartedAt,
		ClosedAt:      order.ClosedAt,
		CreatedAt:     order.CreatedAt,
	}
}
