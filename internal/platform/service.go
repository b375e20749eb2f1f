package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Smartdevs17/supply-chain-payment/internal/accounts"
	"github.com/Smartdevs17/supply-chain-payment/internal/ledger"
	"github.com/Smartdevs17/supply-chain-payment/pkg/config"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
	pkgerrors "github.com/Smartdevs17/supply-chain-payment/pkg/errors"
	"github.com/Smartdevs17/supply-chain-payment/pkg/outbox"
	"github.com/Smartdevs17/supply-chain-payment/pkg/outbox/payloads"
)

// platformAggregateID is the stable aggregate id used for singleton events.
var platformAggregateID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("platform-ledger"))

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Summary is the public shape of the platform ledger.
type Summary struct {
	OrdersCreated int64     `json:"orders_created"`
	FeePercent    int       `json:"fee_percent"`
	FeeBalance    string    `json:"fee_balance"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpdateFeeRequest changes the platform fee percentage.
type UpdateFeeRequest struct {
	FeePercent int `json:"fee_percent" validate:"min=0"`
}

// WithdrawResponse reports the amount drained from the fee balance.
type WithdrawResponse struct {
	Amount string `json:"amount"`
}

// Service defines platform-level administration operations.
type Service interface {
	Get(ctx context.Context) (*Summary, error)
	UpdateFeePercent(ctx context.Context, arbiterID uuid.UUID, arbiterRole enums.AccountRole, req UpdateFeeRequest) (*Summary, error)
	WithdrawFees(ctx context.Context, arbiterID uuid.UUID, arbiterRole enums.AccountRole) (*WithdrawResponse, error)
}

type service struct {
	repo         Repository
	accountsRepo accounts.Repository
	ledgerRepo   ledger.Repository
	tx           txRunner
	outbox       outboxPublisher
	cfg          config.PlatformConfig
}

// ServiceParams bundles the dependencies required to build a platform service.
type ServiceParams struct {
	Repo         Repository
	AccountsRepo accounts.Repository
	LedgerRepo   ledger.Repository
	Tx           txRunner
	Outbox       outboxPublisher
	Config       config.PlatformConfig
}

// NewService constructs a platform service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("platform repository required")
	}
	if params.AccountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:         params.Repo,
		accountsRepo: params.AccountsRepo,
		ledgerRepo:   params.LedgerRepo,
		tx:           params.Tx,
		outbox:       params.Outbox,
		cfg:          params.Config,
	}, nil
}

func newSummary(row *models.PlatformLedger) Summary {
	return Summary{
		OrdersCreated: row.OrdersCreated,
		FeePercent:    row.FeePercent,
		FeeBalance:    accounts.FormatCents(row.FeeBalanceCents),
		UpdatedAt:     row.UpdatedAt,
	}
}

func (s *service) Get(ctx context.Context) (*Summary, error) {
	row, err := s.repo.Find(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "platform ledger not seeded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform ledger")
	}
	summary := newSummary(row)
	return &summary, nil
}

func (s *service) UpdateFeePercent(ctx context.Context, arbiterID uuid.UUID, arbiterRole enums.AccountRole, req UpdateFeeRequest) (*Summary, error) {
	if arbiterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if arbiterRole != enums.AccountRoleArbiter {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "arbiter role required")
	}
	maxPercent := s.cfg.MaxFeePercent
	if maxPercent <= 0 {
		maxPercent = 10
	}
	if req.FeePercent < 0 || req.FeePercent > maxPercent {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("fee percent must be between 0 and %d", maxPercent))
	}

	var summary Summary
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUpdate(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock platform ledger")
		}
		if row.FeePercent == req.FeePercent {
			summary = newSummary(row)
			return nil
		}

		oldPercent := row.FeePercent
		if err := repo.UpdateFeePercent(ctx, req.FeePercent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update fee percent")
		}
		row.FeePercent = req.FeePercent

		event := outbox.DomainEvent{
			EventType:     enums.EventFeePercentUpdated,
			AggregateType: enums.AggregatePlatform,
			AggregateID:   platformAggregateID,
			Version:       1,
			Actor:         &outbox.ActorRef{AccountID: arbiterID, Role: string(arbiterRole)},
			Data: payloads.FeePercentUpdatedEvent{
				OldPercent: oldPercent,
				NewPercent: req.FeePercent,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		summary = newSummary(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// WithdrawFees drains the accrued fee balance into the arbiter's account.
func (s *service) WithdrawFees(ctx context.Context, arbiterID uuid.UUID, arbiterRole enums.AccountRole) (*WithdrawResponse, error) {
	if arbiterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if arbiterRole != enums.AccountRoleArbiter {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "arbiter role required")
	}

	var amount int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUpdate(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock platform ledger")
		}
		if row.FeeBalanceCents <= 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no fees available to withdraw")
		}
		amount = row.FeeBalanceCents

		if err := repo.AddFeeBalance(ctx, -amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drain fee balance")
		}
		if err := s.accountsRepo.WithTx(tx).AddToBalance(ctx, arbiterID, amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit arbiter")
		}

		entry := &models.LedgerEntry{
			AccountID:   arbiterID,
			Type:        enums.LedgerEntryTypeFeeWithdrawal,
			AmountCents: amount,
		}
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record withdrawal")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventFeesWithdrawn,
			AggregateType: enums.AggregatePlatform,
			AggregateID:   platformAggregateID,
			Version:       1,
			Actor:         &outbox.ActorRef{AccountID: arbiterID, Role: string(arbiterRole)},
			Data: payloads.FeesWithdrawnEvent{
				ArbiterID:   arbiterID,
				AmountCents: amount,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return &WithdrawResponse{Amount: accounts.FormatCents(amount)}, nil
}
