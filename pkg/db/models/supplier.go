package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Supplier is a directory record owned by the supplier account. Verified is
// monotonic: once set it is never cleared.
type Supplier struct {
	AccountID        uuid.UUID      `gorm:"column:account_id;type:uuid;primaryKey"`
	DisplayName      string         `gorm:"column:display_name;not null"`
	ContactEmail     string         `gorm:"column:contact_email;not null"`
	ContactTags      pq.StringArray `gorm:"column:contact_tags;type:text[]"`
	Verified         bool           `gorm:"column:verified;not null;default:false"`
	VerifiedAt       *time.Time     `gorm:"column:verified_at"`
	OrdersCompleted  int64          `gorm:"column:orders_completed;not null;default:0"`
	TotalEarnedCents int64          `gorm:"column:total_earned_cents;not null;default:0"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
