package escrow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Smartdevs17/supply-chain-payment/internal/accounts"
	"github.com/Smartdevs17/supply-chain-payment/internal/ledger"
	"github.com/Smartdevs17/supply-chain-payment/internal/platform"
	"github.com/Smartdevs17/supply-chain-payment/internal/suppliers"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
	pkgerrors "github.com/Smartdevs17/supply-chain-payment/pkg/errors"
	"github.com/Smartdevs17/supply-chain-payment/pkg/metrics"
)

// FundsEngine moves money between account balances, escrow custody and the
// platform fee balance. Every method must run inside the caller's transaction
// with the order row already locked, so a failure rolls the whole transition
// back and no partial movement survives.
type FundsEngine struct {
	accountsRepo  accounts.Repository
	suppliersRepo suppliers.Repository
	platformRepo  platform.Repository
	ledgerRepo    ledger.Repository
	metrics       *metrics.EscrowMetrics
}

// NewFundsEngine wires the custody engine. Metrics may be nil.
func NewFundsEngine(
	accountsRepo accounts.Repository,
	suppliersRepo suppliers.Repository,
	platformRepo platform.Repository,
	ledgerRepo ledger.Repository,
	m *metrics.EscrowMetrics,
) (*FundsEngine, error) {
	if accountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if suppliersRepo == nil {
		return nil, fmt.Errorf("suppliers repository required")
	}
	if platformRepo == nil {
		return nil, fmt.Errorf("platform repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &FundsEngine{
		accountsRepo:  accountsRepo,
		suppliersRepo: suppliersRepo,
		platformRepo:  platformRepo,
		ledgerRepo:    ledgerRepo,
		metrics:       m,
	}, nil
}

// SplitPayment computes the floor-division milestone payout. The payment is
// weight percent of the order total; the fee is feePercent of that payment.
// Both divisions truncate, and the supplier share is payment minus fee, so
// the three parts always reconcile exactly.
func SplitPayment(totalCents int64, weightPercent, feePercent int) (payment, fee, supplierShare int64) {
	payment = totalCents * int64(weightPercent) / 100
	fee = payment * int64(feePercent) / 100
	supplierShare = payment - fee
	return payment, fee, supplierShare
}

// LockEscrow debits the buyer's available balance into order custody. An
// insufficient balance surfaces as a non-retryable transfer failure.
func (e *FundsEngine) LockEscrow(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID, orderID uuid.UUID, amountCents int64) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for escrow lock")
	}
	buyer, err := e.accountsRepo.WithTx(tx).FindByIDForUpdate(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "buyer account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock buyer account")
	}
	if buyer.AvailableCents < amountCents {
		return pkgerrors.New(pkgerrors.CodeTransferFailed, "insufficient funds to lock escrow")
	}
	if err := e.accountsRepo.WithTx(tx).AddToBalance(ctx, buyerID, -amountCents); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit buyer")
	}
	return e.record(ctx, tx, &orderID, buyerID, enums.LedgerEntryTypeEscrowLock, amountCents, nil)
}

// ReleaseToSupplier pays out a milestone: the supplier share lands on the
// supplier's balance and earnings, the fee accrues on the platform row.
func (e *FundsEngine) ReleaseToSupplier(ctx context.Context, tx *gorm.DB, orderID, supplierID uuid.UUID, supplierShareCents, feeCents int64, metadata json.RawMessage) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for release")
	}
	if supplierShareCents > 0 {
		if err := e.accountsRepo.WithTx(tx).AddToBalance(ctx, supplierID, supplierShareCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit supplier")
		}
		if err := e.suppliersRepo.WithTx(tx).AddEarnings(ctx, supplierID, supplierShareCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accrue supplier earnings")
		}
		if err := e.record(ctx, tx, &orderID, supplierID, enums.LedgerEntryTypeMilestoneRelease, supplierShareCents, metadata); err != nil {
			return err
		}
	}
	if feeCents > 0 {
		if err := e.platformRepo.WithTx(tx).AddFeeBalance(ctx, feeCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accrue platform fee")
		}
		if err := e.record(ctx, tx, &orderID, supplierID, enums.LedgerEntryTypeFeeAccrual, feeCents, metadata); err != nil {
			return err
		}
	}
	e.metrics.AddReleasedCents(supplierShareCents)
	return nil
}

// RefundToBuyer returns escrow custody to the buyer's available balance.
func (e *FundsEngine) RefundToBuyer(ctx context.Context, tx *gorm.DB, orderID, buyerID uuid.UUID, amountCents int64) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for refund")
	}
	if amountCents <= 0 {
		return nil
	}
	if err := e.accountsRepo.WithTx(tx).AddToBalance(ctx, buyerID, amountCents); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit buyer refund")
	}
	if err := e.record(ctx, tx, &orderID, buyerID, enums.LedgerEntryTypeBuyerRefund, amountCents, nil); err != nil {
		return err
	}
	e.metrics.AddRefundedCents(amountCents)
	return nil
}

func (e *FundsEngine) record(ctx context.Context, tx *gorm.DB, orderID *uuid.UUID, accountID uuid.UUID, entryType enums.LedgerEntryType, amountCents int64, metadata json.RawMessage) error {
	entry := &models.LedgerEntry{
		OrderID:     orderID,
		AccountID:   accountID,
		Type:        entryType,
		AmountCents: amountCents,
		Metadata:    metadata,
	}
	if err := e.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger entry")
	}
	return nil
}
