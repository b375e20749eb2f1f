package models

import (
	"time"

	"github.com/google/uuid"
)

// Milestone is a weighted slice of its order's value. Completed and Approved
// are set-once; Approved implies Completed.
type Milestone struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index:ix_milestones_order"`
	Position      int        `gorm:"column:position;not null"`
	Description   string     `gorm:"column:description;not null"`
	WeightPercent int        `gorm:"column:weight_percent;not null"`
	Completed     bool       `gorm:"column:completed;not null;default:false"`
	Approved      bool       `gorm:"column:approved;not null;default:false"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
	ApprovedAt    *time.Time `gorm:"column:approved_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}
