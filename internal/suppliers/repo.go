package suppliers

import (
	"context"
	"time"

	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages supplier directory persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, supplier *models.Supplier) error
	FindByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Supplier, error)
	List(ctx context.Context, query ListQuery) ([]models.Supplier, error)
	MarkVerified(ctx context.Context, accountID uuid.UUID, at time.Time) error
	AddEarnings(ctx context.Context, accountID uuid.UUID, earnedCents int64) error
	IncrementOrdersCompleted(ctx context.Context, accountID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a suppliers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *repository) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&supplier).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Supplier, error) {
	limit := query.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := r.db.WithContext(ctx).
		Order("created_at ASC").
		Limit(limit).
		Offset(query.Offset)
	if query.VerifiedOnly {
		q = q.Where("verified = ?", true)
	}
	var suppliers []models.Supplier
	if err := q.Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (r *repository) MarkVerified(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"verified":    true,
			"verified_at": at,
		}).Error
}

// AddEarnings accrues lifetime earnings as milestone payments release.
func (r *repository) AddEarnings(ctx context.Context, accountID uuid.UUID, earnedCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("account_id = ?", accountID).
		UpdateColumn("total_earned_cents", gorm.Expr("total_earned_cents + ?", earnedCents)).Error
}

func (r *repository) IncrementOrdersCompleted(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("account_id = ?", accountID).
		UpdateColumn("orders_completed", gorm.Expr("orders_completed + 1")).Error
}
