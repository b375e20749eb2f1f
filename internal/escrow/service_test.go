package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Smartdevs17/supply-chain-payment/internal/accounts"
	"github.com/Smartdevs17/supply-chain-payment/internal/ledger"
	"github.com/Smartdevs17/supply-chain-payment/internal/platform"
	"github.com/Smartdevs17/supply-chain-payment/internal/suppliers"
	"github.com/Smartdevs17/supply-chain-payment/pkg/config"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
	pkgerrors "github.com/Smartdevs17/supply-chain-payment/pkg/errors"
	"github.com/Smartdevs17/supply-chain-payment/pkg/outbox"
)

type fakeOrderRepo struct {
	orders     map[uuid.UUID]*models.Order
	milestones map[uuid.UUID][]*models.Milestone
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:     make(map[uuid.UUID]*models.Order),
		milestones: make(map[uuid.UUID][]*models.Milestone),
	}
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	stored := *order
	f.orders[order.ID] = &stored
	return nil
}

func (f *fakeOrderRepo) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return f.FindOrderForUpdate(ctx, id)
}

func (f *fakeOrderRepo) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	stored, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	order := *stored
	milestones, _ := f.FindMilestonesByOrder(ctx, id)
	order.Milestones = milestones
	return &order, nil
}

func (f *fakeOrderRepo) ListOrdersByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	for id, stored := range f.orders {
		if stored.BuyerID != accountID && stored.SupplierID != accountID {
			continue
		}
		order, _ := f.FindOrderForUpdate(ctx, id)
		orders = append(orders, *order)
	}
	return orders, nil
}

func (f *fakeOrderRepo) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	order, ok := f.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for column, value := range updates {
		switch column {
		case "status":
			order.Status = value.(enums.OrderStatus)
		case "paid_cents":
			order.PaidCents = value.(int64)
		case "started_at":
			at := value.(time.Time)
			order.StartedAt = &at
		case "closed_at":
			at := value.(time.Time)
			order.ClosedAt = &at
		case "dispute_raised":
			order.DisputeRaised = value.(bool)
		case "dispute_reason":
			reason := value.(string)
			order.DisputeReason = &reason
		}
	}
	return nil
}

func (f *fakeOrderRepo) CreateMilestone(ctx context.Context, milestone *models.Milestone) error {
	if milestone.ID == uuid.Nil {
		milestone.ID = uuid.New()
	}
	stored := *milestone
	f.milestones[milestone.OrderID] = append(f.milestones[milestone.OrderID], &stored)
	return nil
}

func (f *fakeOrderRepo) FindMilestone(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	for _, list := range f.milestones {
		for _, m := range list {
			if m.ID == id {
				milestone := *m
				return &milestone, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) FindMilestonesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Milestone, error) {
	var milestones []models.Milestone
	for _, m := range f.milestones[orderID] {
		milestones = append(milestones, *m)
	}
	return milestones, nil
}

func (f *fakeOrderRepo) UpdateMilestone(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	for _, list := range f.milestones {
		for _, m := range list {
			if m.ID != id {
				continue
			}
			for column, value := range updates {
				switch column {
				case "completed":
					m.Completed = value.(bool)
				case "completed_at":
					at := value.(time.Time)
					m.CompletedAt = &at
				case "approved":
					m.Approved = value.(bool)
				case "approved_at":
					at := value.(time.Time)
					m.ApprovedAt = &at
				}
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeAccountsRepo struct {
	accounts map[uuid.UUID]*models.Account
}

func (f *fakeAccountsRepo) WithTx(tx *gorm.DB) accounts.Repository { return f }

func (f *fakeAccountsRepo) Create(ctx context.Context, account *models.Account) error {
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountsRepo) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if account, ok := f.accounts[id]; ok {
		return account, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountsRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeAccountsRepo) AddToBalance(ctx context.Context, id uuid.UUID, deltaCents int64) error {
	account, ok := f.accounts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	account.AvailableCents += deltaCents
	return nil
}

type fakeSuppliersRepo struct {
	suppliers map[uuid.UUID]*models.Supplier
}

func (f *fakeSuppliersRepo) WithTx(tx *gorm.DB) suppliers.Repository { return f }

func (f *fakeSuppliersRepo) Create(ctx context.Context, supplier *models.Supplier) error {
	f.suppliers[supplier.AccountID] = supplier
	return nil
}

func (f *fakeSuppliersRepo) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Supplier, error) {
	if supplier, ok := f.suppliers[accountID]; ok {
		return supplier, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSuppliersRepo) List(ctx context.Context, query suppliers.ListQuery) ([]models.Supplier, error) {
	return nil, nil
}

func (f *fakeSuppliersRepo) MarkVerified(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	supplier, ok := f.suppliers[accountID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	supplier.Verified = true
	supplier.VerifiedAt = &at
	return nil
}

func (f *fakeSuppliersRepo) AddEarnings(ctx context.Context, accountID uuid.UUID, earnedCents int64) error {
	supplier, ok := f.suppliers[accountID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	supplier.TotalEarnedCents += earnedCents
	return nil
}

func (f *fakeSuppliersRepo) IncrementOrdersCompleted(ctx context.Context, accountID uuid.UUID) error {
	supplier, ok := f.suppliers[accountID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	supplier.OrdersCompleted++
	return nil
}

type fakePlatformRepo struct {
	row *models.PlatformLedger
}

func (f *fakePlatformRepo) WithTx(tx *gorm.DB) platform.Repository { return f }

func (f *fakePlatformRepo) Find(ctx context.Context) (*models.PlatformLedger, error) {
	return f.row, nil
}

func (f *fakePlatformRepo) FindForUpdate(ctx context.Context) (*models.PlatformLedger, error) {
	return f.row, nil
}

func (f *fakePlatformRepo) IncrementOrdersCreated(ctx context.Context) error {
	f.row.OrdersCreated++
	return nil
}

func (f *fakePlatformRepo) UpdateFeePercent(ctx context.Context, percent int) error {
	f.row.FeePercent = percent
	return nil
}

func (f *fakePlatformRepo) AddFeeBalance(ctx context.Context, deltaCents int64) error {
	f.row.FeeBalanceCents += deltaCents
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

func (f *fakeLedgerRepo) countByType(entryType enums.LedgerEntryType) int {
	count := 0
	for _, entry := range f.entries {
		if entry.Type == entryType {
			count++
		}
	}
	return count
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

func (f *fakeOutbox) has(eventType enums.OutboxEventType) bool {
	for _, event := range f.events {
		if event.EventType == eventType {
			return true
		}
	}
	return false
}

type world struct {
	svc       Service
	orders    *fakeOrderRepo
	accounts  *fakeAccountsRepo
	suppliers *fakeSuppliersRepo
	platform  *fakePlatformRepo
	ledger    *fakeLedgerRepo
	outbox    *fakeOutbox

	buyerID    uuid.UUID
	supplierID uuid.UUID
}

func newWorld(t *testing.T) *world {
	t.Helper()

	w := &world{
		orders:     newFakeOrderRepo(),
		accounts:   &fakeAccountsRepo{accounts: make(map[uuid.UUID]*models.Account)},
		suppliers:  &fakeSuppliersRepo{suppliers: make(map[uuid.UUID]*models.Supplier)},
		platform:   &fakePlatformRepo{row: &models.PlatformLedger{ID: models.PlatformLedgerID, FeePercent: 1}},
		ledger:     &fakeLedgerRepo{},
		outbox:     &fakeOutbox{},
		buyerID:    uuid.New(),
		supplierID: uuid.New(),
	}

	w.accounts.accounts[w.buyerID] = &models.Account{ID: w.buyerID, AvailableCents: 200_000}
	w.accounts.accounts[w.supplierID] = &models.Account{ID: w.supplierID}
	now := time.Now()
	w.suppliers.suppliers[w.supplierID] = &models.Supplier{
		AccountID:   w.supplierID,
		DisplayName: "Acme Metals",
		Verified:    true,
		VerifiedAt:  &now,
	}

	funds, err := NewFundsEngine(w.accounts, w.suppliers, w.platform, w.ledger, nil)
	if err != nil {
		t.Fatalf("NewFundsEngine: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Repo:          w.orders,
		SuppliersRepo: w.suppliers,
		PlatformRepo:  w.platform,
		Funds:         funds,
		Tx:            fakeTx{},
		Outbox:        w.outbox,
		Config: config.PlatformConfig{
			DefaultFeePercent: 1,
			MaxFeePercent:     10,
			MaxMilestones:     20,
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	w.svc = svc
	return w
}

// inProgressOrder builds the canonical fixture: a 1000.00 order split
// 30/40/30 and started.
func (w *world) inProgressOrder(t *testing.T) *OrderView {
	t.Helper()
	ctx := context.Background()

	view, err := w.svc.CreateOrder(ctx, w.buyerID, CreateOrderRequest{
		SupplierID:  w.supplierID,
		Description: "steel beams, three deliveries",
		TotalCents:  100_000,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	for i, weight := range []int{30, 40, 30} {
		view, err = w.svc.AddMilestone(ctx, w.buyerID, view.ID, AddMilestoneRequest{
			Description:   "delivery",
			WeightPercent: weight,
		})
		if err != nil {
			t.Fatalf("AddMilestone %d: %v", i+1, err)
		}
	}
	view, err = w.svc.StartOrder(ctx, w.buyerID, view.ID)
	if err != nil {
		t.Fatalf("StartOrder: %v", err)
	}
	return view
}

func (w *world) approve(t *testing.T, orderID, milestoneID uuid.UUID) *OrderView {
	t.Helper()
	ctx := context.Background()
	if _, err := w.svc.CompleteMilestone(ctx, w.supplierID, orderID, milestoneID); err != nil {
		t.Fatalf("CompleteMilestone: %v", err)
	}
	view, err := w.svc.ApproveMilestone(ctx, w.buyerID, orderID, milestoneID)
	if err != nil {
		t.Fatalf("ApproveMilestone: %v", err)
	}
	return view
}

func TestSplitPayment(t *testing.T) {
	cases := []struct {
		name          string
		total         int64
		weight        int
		feePercent    int
		payment       int64
		fee           int64
		supplierShare int64
	}{
		{"thirty percent at one percent fee", 100_000, 30, 1, 30_000, 300, 29_700},
		{"forty percent at one percent fee", 100_000, 40, 1, 40_000, 400, 39_600},
		{"full weight at max fee", 100_000, 100, 10, 100_000, 10_000, 90_000},
		{"odd amounts truncate", 99_999, 33, 1, 32_999, 329, 32_670},
		{"zero fee keeps whole payment", 50_000, 50, 0, 25_000, 0, 25_000},
		{"tiny payment rounds fee to zero", 99, 10, 1, 9, 0, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payment, fee, share := SplitPayment(tc.total, tc.weight, tc.feePercent)
			if payment != tc.payment || fee != tc.fee || share != tc.supplierShare {
				t.Fatalf("got %d/%d/%d, want %d/%d/%d",
					payment, fee, share, tc.payment, tc.fee, tc.supplierShare)
			}
			if fee+share != payment {
				t.Fatalf("fee %d + share %d must reconcile to payment %d", fee, share, payment)
			}
		})
	}
}

func TestCreateOrderLocksEscrow(t *testing.T) {
	w := newWorld(t)

	view, err := w.svc.CreateOrder(context.Background(), w.buyerID, CreateOrderRequest{
		SupplierID:  w.supplierID,
		Description: "pallet of fasteners",
		TotalCents:  100_000,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if view.OrderNumber != 1 {
		t.Fatalf("expected first order number, got %d", view.OrderNumber)
	}
	if view.Status != enums.OrderStatusCreated {
		t.Fatalf("expected created status, got %s", view.Status)
	}
	if got := w.accounts.accounts[w.buyerID].AvailableCents; got != 100_000 {
		t.Fatalf("expected buyer balance 100000 after lock, got %d", got)
	}
	if w.ledger.countByType(enums.LedgerEntryTypeEscrowLock) != 1 {
		t.Fatalf("expected one escrow lock entry, got %+v", w.ledger.entries)
	}
	if !w.outbox.has(enums.EventOrderCreated) {
		t.Fatalf("expected order_created event, got %+v", w.outbox.events)
	}
	if w.platform.row.OrdersCreated != 1 {
		t.Fatalf("expected order counter advanced, got %d", w.platform.row.OrdersCreated)
	}
}

func TestCreateOrderRejectsUnverifiedSupplier(t *testing.T) {
	w := newWorld(t)
	w.suppliers.suppliers[w.supplierID].Verified = false

	_, err := w.svc.CreateOrder(context.Background(), w.buyerID, CreateOrderRequest{
		SupplierID:  w.supplierID,
		Description: "pallet of fasteners",
		TotalCents:  100_000,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if got := w.accounts.accounts[w.buyerID].AvailableCents; got != 200_000 {
		t.Fatalf("buyer balance must be untouched, got %d", got)
	}
	if len(w.ledger.entries) != 0 || len(w.outbox.events) != 0 {
		t.Fatalf("no funds movement or events expected on rejection")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	_, err := w.svc.CreateOrder(ctx, w.buyerID, CreateOrderRequest{
		SupplierID: w.buyerID, Description: "self deal", TotalCents: 100,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for self order, got %v", err)
	}

	_, err = w.svc.CreateOrder(ctx, w.buyerID, CreateOrderRequest{
		SupplierID: w.supplierID, Description: "free stuff", TotalCents: 0,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero total, got %v", err)
	}

	_, err = w.svc.CreateOrder(ctx, w.buyerID, CreateOrderRequest{
		SupplierID: w.supplierID, Description: "", TotalCents: 100,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty description, got %v", err)
	}
}

func TestCreateOrderInsufficientFunds(t *testing.T) {
	w := newWorld(t)
	w.accounts.accounts[w.buyerID].AvailableCents = 50_000

	_, err := w.svc.CreateOrder(context.Background(), w.buyerID, CreateOrderRequest{
		SupplierID:  w.supplierID,
		Description: "pallet of fasteners",
		TotalCents:  100_000,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeTransferFailed {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	if got := w.accounts.accounts[w.buyerID].AvailableCents; got != 50_000 {
		t.Fatalf("buyer balance must be untouched, got %d", got)
	}
}

func TestAddMilestoneRules(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	view, err := w.svc.CreateOrder(ctx, w.buyerID, CreateOrderRequest{
		SupplierID:  w.supplierID,
		Description: "machined parts",
		TotalCents:  100_000,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	// only the buyer defines the schedule
	_, err = w.svc.AddMilestone(ctx, w.supplierID, view.ID, AddMilestoneRequest{
		Description: "tooling", WeightPercent: 50,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for supplier, got %v", err)
	}

	if _, err := w.svc.AddMilestone(ctx, w.buyerID, view.ID, AddMilestoneRequest{
		Description: "tooling", WeightPercent: 60,
	}); err != nil {
		t.Fatalf("AddMilestone: %v", err)
	}

	// running weight sum is capped at 100
	_, err = w.svc.AddMilestone(ctx, w.buyerID, view.ID, AddMilestoneRequest{
		Description: "assembly", WeightPercent: 50,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error over 100 percent, got %v", err)
	}

	_, err = w.svc.AddMilestone(ctx, w.buyerID, view.ID, AddMilestoneRequest{
		Description: "assembly", WeightPercent: 0,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero weight, got %v", err)
	}
}

func TestStartOrderRequiresFullCoverage(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	view, err := w.svc.CreateOrder(ctx, w.buyerID, CreateOrderRequest{
		SupplierID:  w.supplierID,
		Description: "machined parts",
		TotalCents:  100_000,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	// no milestones yet
	_, err = w.svc.StartOrder(ctx, w.buyerID, view.ID)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict without milestones, got %v", err)
	}

	if _, err := w.svc.AddMilestone(ctx, w.buyerID, view.ID, AddMilestoneRequest{
		Description: "tooling", WeightPercent: 60,
	}); err != nil {
		t.Fatalf("AddMilestone: %v", err)
	}

	// 60 < 100
	_, err = w.svc.StartOrder(ctx, w.buyerID, view.ID)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict under 100 percent, got %v", err)
	}

	// the supplier cannot start the order
	_, err = w.svc.StartOrder(ctx, w.supplierID, view.ID)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for supplier, got %v", err)
	}

	if _, err := w.svc.AddMilestone(ctx, w.buyerID, view.ID, AddMilestoneRequest{
		Description: "assembly", WeightPercent: 40,
	}); err != nil {
		t.Fatalf("AddMilestone: %v", err)
	}
	started, err := w.svc.StartOrder(ctx, w.buyerID, view.ID)
	if err != nil {
		t.Fatalf("StartOrder: %v", err)
	}
	if started.Status != enums.OrderStatusInProgress || started.StartedAt == nil {
		t.Fatalf("expected in-progress order, got %+v", started)
	}
	if !w.outbox.has(enums.EventOrderStarted) {
		t.Fatalf("expected order_started event")
	}

	// milestones are frozen once work starts
	_, err = w.svc.AddMilestone(ctx, w.buyerID, view.ID, AddMilestoneRequest{
		Description: "extra", WeightPercent: 10,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict after start, got %v", err)
	}
}

func TestApproveMilestoneReleasesPayment(t *testing.T) {
	w := newWorld(t)
	order := w.inProgressOrder(t)

	view := w.approve(t, order.ID, order.Milestones[0].ID)

	if view.Status != enums.OrderStatusInProgress {
		t.Fatalf("order must stay in progress with milestones pending, got %s", view.Status)
	}
	if view.Paid != "300.00" {
		t.Fatalf("expected paid 300.00, got %s", view.Paid)
	}
	if got := w.accounts.accounts[w.supplierID].AvailableCents; got != 29_700 {
		t.Fatalf("expected supplier credited 29700, got %d", got)
	}
	if w.platform.row.FeeBalanceCents != 300 {
		t.Fatalf("expected fee balance 300, got %d", w.platform.row.FeeBalanceCents)
	}
	if got := w.suppliers.suppliers[w.supplierID].TotalEarnedCents; got != 29_700 {
		t.Fatalf("expected supplier earnings 29700, got %d", got)
	}
	if w.ledger.countByType(enums.LedgerEntryTypeMilestoneRelease) != 1 {
		t.Fatalf("expected one release entry")
	}
	if w.ledger.countByType(enums.LedgerEntryTypeFeeAccrual) != 1 {
		t.Fatalf("expected one fee accrual entry")
	}
	if !w.outbox.has(enums.EventMilestoneApproved) || !w.outbox.has(enums.EventPaymentReleased) {
		t.Fatalf("expected milestone_approved and payment_released events, got %+v", w.outbox.events)
	}
	if w.outbox.has(enums.EventOrderCompleted) {
		t.Fatalf("order must not complete with milestones pending")
	}
}

func TestApprovingAllMilestonesCompletesOrder(t *testing.T) {
	w := newWorld(t)
	order := w.inProgressOrder(t)

	var view *OrderView
	for _, m := range order.Milestones {
		view = w.approve(t, order.ID, m.ID)
	}

	if view.Status != enums.OrderStatusCompleted || view.ClosedAt == nil {
		t.Fatalf("expected completed order, got %+v", view)
	}
	if view.Paid != "1000.00" || view.Remaining != "0.00" {
		t.Fatalf("expected fully paid order, got paid %s remaining %s", view.Paid, view.Remaining)
	}
	// 29700 + 39600 + 29700
	if got := w.accounts.accounts[w.supplierID].AvailableCents; got != 99_000 {
		t.Fatalf("expected supplier balance 99000, got %d", got)
	}
	if w.platform.row.FeeBalanceCents != 1_000 {
		t.Fatalf("expected fee balance 1000, got %d", w.platform.row.FeeBalanceCents)
	}
	if got := w.suppliers.suppliers[w.supplierID].OrdersCompleted; got != 1 {
		t.Fatalf("expected supplier completion counted, got %d", got)
	}
	if !w.outbox.has(enums.EventOrderCompleted) {
		t.Fatalf("expected order_completed event")
	}
}

func TestMilestoneLifecycleGuards(t *testing.T) {
	w := newWorld(t)
	order := w.inProgressOrder(t)
	ctx := context.Background()
	first := order.Milestones[0].ID

	// approval requires supplier completion first
	_, err := w.svc.ApproveMilestone(ctx, w.buyerID, order.ID, first)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict approving incomplete milestone, got %v", err)
	}

	// only the supplier completes, only the buyer approves
	_, err = w.svc.CompleteMilestone(ctx, w.buyerID, order.ID, first)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for buyer completion, got %v", err)
	}
	if _, err := w.svc.CompleteMilestone(ctx, w.supplierID, order.ID, first); err != nil {
		t.Fatalf("CompleteMilestone: %v", err)
	}
	_, err = w.svc.CompleteMilestone(ctx, w.supplierID, order.ID, first)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for double completion, got %v", err)
	}
	_, err = w.svc.ApproveMilestone(ctx, w.supplierID, order.ID, first)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for supplier approval, got %v", err)
	}

	if _, err := w.svc.ApproveMilestone(ctx, w.buyerID, order.ID, first); err != nil {
		t.Fatalf("ApproveMilestone: %v", err)
	}
	_, err = w.svc.ApproveMilestone(ctx, w.buyerID, order.ID, first)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for double approval, got %v", err)
	}

	_, err = w.svc.ApproveMilestone(ctx, w.buyerID, order.ID, uuid.New())
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown milestone, got %v", err)
	}
}

func TestCancelOrderRefundsBuyer(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	view, err := w.svc.CreateOrder(ctx, w.buyerID, CreateOrderRequest{
		SupplierID:  w.supplierID,
		Description: "cancelled before kickoff",
		TotalCents:  100_000,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	cancelled, err := w.svc.CancelOrder(ctx, w.buyerID, view.ID)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled || cancelled.ClosedAt == nil {
		t.Fatalf("expected cancelled order, got %+v", cancelled)
	}
	if got := w.accounts.accounts[w.buyerID].AvailableCents; got != 200_000 {
		t.Fatalf("expected full refund, got balance %d", got)
	}
	if w.ledger.countByType(enums.LedgerEntryTypeBuyerRefund) != 1 {
		t.Fatalf("expected one refund entry")
	}
	if !w.outbox.has(enums.EventOrderCancelled) {
		t.Fatalf("expected order_cancelled event")
	}

	// terminal orders reject further mutation
	_, err = w.svc.AddMilestone(ctx, w.buyerID, view.ID, AddMilestoneRequest{
		Description: "late milestone", WeightPercent: 50,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on cancelled order, got %v", err)
	}
	_, err = w.svc.CancelOrder(ctx, w.buyerID, view.ID)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double cancel, got %v", err)
	}
}

func TestCancelStartedOrderRejected(t *testing.T) {
	w := newWorld(t)
	order := w.inProgressOrder(t)

	_, err := w.svc.CancelOrder(context.Background(), w.buyerID, order.ID)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict cancelling started order, got %v", err)
	}
	if got := w.accounts.accounts[w.buyerID].AvailableCents; got != 100_000 {
		t.Fatalf("escrow must stay locked, got balance %d", got)
	}
}

func TestGetOrderVisibility(t *testing.T) {
	w := newWorld(t)
	order := w.inProgressOrder(t)
	ctx := context.Background()

	if _, err := w.svc.GetOrder(ctx, w.buyerID, enums.AccountRoleMember, order.ID); err != nil {
		t.Fatalf("buyer GetOrder: %v", err)
	}
	if _, err := w.svc.GetOrder(ctx, w.supplierID, enums.AccountRoleMember, order.ID); err != nil {
		t.Fatalf("supplier GetOrder: %v", err)
	}

	_, err := w.svc.GetOrder(ctx, uuid.New(), enums.AccountRoleMember, order.ID)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}

	// arbiters can inspect any order
	if _, err := w.svc.GetOrder(ctx, uuid.New(), enums.AccountRoleArbiter, order.ID); err != nil {
		t.Fatalf("arbiter GetOrder: %v", err)
	}

	_, err = w.svc.GetOrder(ctx, w.buyerID, enums.AccountRoleMember, uuid.New())
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListOrders(t *testing.T) {
	w := newWorld(t)
	w.inProgressOrder(t)

	views, err := w.svc.ListOrders(context.Background(), w.buyerID, 10, 0)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one order, got %d", len(views))
	}

	views, err = w.svc.ListOrders(context.Background(), uuid.New(), 10, 0)
	if err != nil {
		t.Fatalf("ListOrders stranger: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected no orders for stranger, got %d", len(views))
	}
}
