package platform

import (
	"context"

	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages the singleton platform ledger row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context) (*models.PlatformLedger, error)
	FindForUpdate(ctx context.Context) (*models.PlatformLedger, error)
	IncrementOrdersCreated(ctx context.Context) error
	UpdateFeePercent(ctx context.Context, percent int) error
	AddFeeBalance(ctx context.Context, deltaCents int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a platform repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context) (*models.PlatformLedger, error) {
	var row models.PlatformLedger
	err := r.db.WithContext(ctx).
		Where("id = ?", models.PlatformLedgerID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindForUpdate locks the singleton row, serializing order numbering and fee
// balance mutations across concurrent transactions.
func (r *repository) FindForUpdate(ctx context.Context) (*models.PlatformLedger, error) {
	var row models.PlatformLedger
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", models.PlatformLedgerID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) IncrementOrdersCreated(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&models.PlatformLedger{}).
		Where("id = ?", models.PlatformLedgerID).
		UpdateColumn("orders_created", gorm.Expr("orders_created + 1")).Error
}

func (r *repository) UpdateFeePercent(ctx context.Context, percent int) error {
	return r.db.WithContext(ctx).
		Model(&models.PlatformLedger{}).
		Where("id = ?", models.PlatformLedgerID).
		Update("fee_percent", percent).Error
}

func (r *repository) AddFeeBalance(ctx context.Context, deltaCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.PlatformLedger{}).
		Where("id = ?", models.PlatformLedgerID).
		UpdateColumn("fee_balance_cents", gorm.Expr("fee_balance_cents + ?", deltaCents)).Error
}
