package platform

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Smartdevs17/supply-chain-payment/internal/accounts"
	"github.com/Smartdevs17/supply-chain-payment/internal/ledger"
	"github.com/Smartdevs17/supply-chain-payment/pkg/config"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
	pkgerrors "github.com/Smartdevs17/supply-chain-payment/pkg/errors"
	"github.com/Smartdevs17/supply-chain-payment/pkg/outbox"
)

type fakeRepo struct {
	row *models.PlatformLedger
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Find(ctx context.Context) (*models.PlatformLedger, error) {
	if f.row == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.row, nil
}

func (f *fakeRepo) FindForUpdate(ctx context.Context) (*models.PlatformLedger, error) {
	return f.Find(ctx)
}

func (f *fakeRepo) IncrementOrdersCreated(ctx context.Context) error {
	f.row.OrdersCreated++
	return nil
}

func (f *fakeRepo) UpdateFeePercent(ctx context.Context, percent int) error {
	f.row.FeePercent = percent
	return nil
}

func (f *fakeRepo) AddFeeBalance(ctx context.Context, deltaCents int64) error {
	f.row.FeeBalanceCents += deltaCents
	return nil
}

type fakeAccountsRepo struct {
	balances map[uuid.UUID]int64
}

func (f *fakeAccountsRepo) WithTx(tx *gorm.DB) accounts.Repository { return f }

func (f *fakeAccountsRepo) Create(ctx context.Context, account *models.Account) error { return nil }

func (f *fakeAccountsRepo) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountsRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountsRepo) AddToBalance(ctx context.Context, id uuid.UUID, deltaCents int64) error {
	f.balances[id] += deltaCents
	return nil
}

type fakeLedgerRepo struct {
	entries []*models.LedgerEntry
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }

func (f *fakeLedgerRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLedgerRepo) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEntry, error) {
	return nil, nil
}

func (f *fakeLedgerRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	return nil, nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newTestService(t *testing.T, row *models.PlatformLedger) (Service, *fakeRepo, *fakeAccountsRepo, *fakeLedgerRepo, *fakeOutbox) {
	t.Helper()
	repo := &fakeRepo{row: row}
	accountsRepo := &fakeAccountsRepo{balances: make(map[uuid.UUID]int64)}
	ledgerRepo := &fakeLedgerRepo{}
	ob := &fakeOutbox{}
	svc, err := NewService(ServiceParams{
		Repo:         repo,
		AccountsRepo: accountsRepo,
		LedgerRepo:   ledgerRepo,
		Tx:           fakeTx{},
		Outbox:       ob,
		Config:       config.PlatformConfig{DefaultFeePercent: 1, MaxFeePercent: 10, MaxMilestones: 20},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo, accountsRepo, ledgerRepo, ob
}

func TestUpdateFeePercent(t *testing.T) {
	svc, repo, _, _, ob := newTestService(t, &models.PlatformLedger{ID: models.PlatformLedgerID, FeePercent: 1})

	arbiterID := uuid.New()
	summary, err := svc.UpdateFeePercent(context.Background(), arbiterID, enums.AccountRoleArbiter, UpdateFeeRequest{FeePercent: 5})
	if err != nil {
		t.Fatalf("UpdateFeePercent: %v", err)
	}
	if summary.FeePercent != 5 || repo.row.FeePercent != 5 {
		t.Fatalf("expected fee percent 5, got %+v", summary)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventFeePercentUpdated {
		t.Fatalf("expected fee_percent_updated event, got %+v", ob.events)
	}
}

func TestUpdateFeePercentNoChange(t *testing.T) {
	svc, _, _, _, ob := newTestService(t, &models.PlatformLedger{ID: models.PlatformLedgerID, FeePercent: 3})

	if _, err := svc.UpdateFeePercent(context.Background(), uuid.New(), enums.AccountRoleArbiter, UpdateFeeRequest{FeePercent: 3}); err != nil {
		t.Fatalf("UpdateFeePercent: %v", err)
	}
	if len(ob.events) != 0 {
		t.Fatalf("no-op update must not emit events, got %+v", ob.events)
	}
}

func TestUpdateFeePercentBounds(t *testing.T) {
	svc, _, _, _, _ := newTestService(t, &models.PlatformLedger{ID: models.PlatformLedgerID, FeePercent: 1})

	for _, percent := range []int{-1, 11} {
		_, err := svc.UpdateFeePercent(context.Background(), uuid.New(), enums.AccountRoleArbiter, UpdateFeeRequest{FeePercent: percent})
		if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %d, got %v", percent, err)
		}
	}
}

func TestUpdateFeePercentForbidden(t *testing.T) {
	svc, _, _, _, _ := newTestService(t, &models.PlatformLedger{ID: models.PlatformLedgerID, FeePercent: 1})

	_, err := svc.UpdateFeePercent(context.Background(), uuid.New(), enums.AccountRoleMember, UpdateFeeRequest{FeePercent: 2})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestWithdrawFees(t *testing.T) {
	svc, repo, accountsRepo, ledgerRepo, ob := newTestService(t, &models.PlatformLedger{
		ID:              models.PlatformLedgerID,
		FeePercent:      1,
		FeeBalanceCents: 1500,
	})

	arbiterID := uuid.New()
	resp, err := svc.WithdrawFees(context.Background(), arbiterID, enums.AccountRoleArbiter)
	if err != nil {
		t.Fatalf("WithdrawFees: %v", err)
	}
	if resp.Amount != "15.00" {
		t.Fatalf("unexpected amount %q", resp.Amount)
	}
	if repo.row.FeeBalanceCents != 0 {
		t.Fatalf("expected drained balance, got %d", repo.row.FeeBalanceCents)
	}
	if accountsRepo.balances[arbiterID] != 1500 {
		t.Fatalf("expected arbiter credited 1500, got %d", accountsRepo.balances[arbiterID])
	}
	if len(ledgerRepo.entries) != 1 || ledgerRepo.entries[0].Type != enums.LedgerEntryTypeFeeWithdrawal {
		t.Fatalf("expected fee_withdrawal entry, got %+v", ledgerRepo.entries)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventFeesWithdrawn {
		t.Fatalf("expected fees_withdrawn event, got %+v", ob.events)
	}
}

func TestWithdrawFeesEmptyBalance(t *testing.T) {
	svc, _, _, _, _ := newTestService(t, &models.PlatformLedger{ID: models.PlatformLedgerID, FeePercent: 1})

	_, err := svc.WithdrawFees(context.Background(), uuid.New(), enums.AccountRoleArbiter)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for empty balance, got %v", err)
	}
}

func TestGetNotSeeded(t *testing.T) {
	svc, _, _, _, _ := newTestService(t, nil)

	_, err := svc.Get(context.Background())
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
