package escrow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Smartdevs17/supply-chain-payment/internal/platform"
	"github.com/Smartdevs17/supply-chain-payment/internal/suppliers"
	"github.com/Smartdevs17/supply-chain-payment/pkg/config"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
	pkgerrors "github.com/Smartdevs17/supply-chain-payment/pkg/errors"
	"github.com/Smartdevs17/supply-chain-payment/pkg/metrics"
	"github.com/Smartdevs17/supply-chain-payment/pkg/outbox"
	"github.com/Smartdevs17/supply-chain-payment/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the escrow order lifecycle.
type Service interface {
	CreateOrder(ctx context.Context, buyerID uuid.UUID, req CreateOrderRequest) (*OrderView, error)
	AddMilestone(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID, req AddMilestoneRequest) (*OrderView, error)
	StartOrder(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID) (*OrderView, error)
	CompleteMilestone(ctx context.Context, actorID uuid.UUID, orderID, milestoneID uuid.UUID) (*OrderView, error)
	ApproveMilestone(ctx context.Context, actorID uuid.UUID, orderID, milestoneID uuid.UUID) (*OrderView, error)
	CancelOrder(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID) (*OrderView, error)
	GetOrder(ctx context.Context, actorID uuid.UUID, actorRole enums.AccountRole, orderID uuid.UUID) (*OrderView, error)
	ListOrders(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]OrderView, error)
}

type service struct {
	repo          Repository
	suppliersRepo suppliers.Repository
	platformRepo  platform.Repository
	funds         *FundsEngine
	tx            txRunner
	outbox        outboxPublisher
	metrics       *metrics.EscrowMetrics
	cfg           config.PlatformConfig
}

// ServiceParams bundles the dependencies required to build an escrow service.
type ServiceParams struct {
	Repo          Repository
	SuppliersRepo suppliers.Repository
	PlatformRepo  platform.Repository
	Funds         *FundsEngine
	Tx            txRunner
	Outbox        outboxPublisher
	Metrics       *metrics.EscrowMetrics
	Config        config.PlatformConfig
}

// NewService constructs an escrow service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if params.SuppliersRepo == nil {
		return nil, fmt.Errorf("suppliers repository required")
	}
	if params.PlatformRepo == nil {
		return nil, fmt.Errorf("platform repository required")
	}
	if params.Funds == nil {
		return nil, fmt.Errorf("funds engine required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:          params.Repo,
		suppliersRepo: params.SuppliersRepo,
		platformRepo:  params.PlatformRepo,
		funds:         params.Funds,
		tx:            params.Tx,
		outbox:        params.Outbox,
		metrics:       params.Metrics,
		cfg:           params.Config,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, buyerID uuid.UUID, req CreateOrderRequest) (*OrderView, error) {
	started := time.Now()
	view, err := s.createOrder(ctx, buyerID, req)
	s.observe("create_order", started, err)
	return view, err
}

func (s *service) createOrder(ctx context.Context, buyerID uuid.UUID, req CreateOrderRequest) (*OrderView, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if req.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	if req.SupplierID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot order from yourself")
	}
	if req.TotalCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}
	if req.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		supplier, err := s.suppliersRepo.WithTx(tx).FindByAccountID(ctx, req.SupplierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find supplier")
		}
		if !supplier.Verified {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "supplier is not verified")
		}

		// Lock the platform row first: it hands out the order number and
		// serializes counter updates across concurrent creates.
		platformRepo := s.platformRepo.WithTx(tx)
		ledgerRow, err := platformRepo.FindForUpdate(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock platform ledger")
		}
		orderNumber := ledgerRow.OrdersCreated + 1
		if err := platformRepo.IncrementOrdersCreated(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order counter")
		}

		order = &models.Order{
			OrderNumber: orderNumber,
			BuyerID:     buyerID,
			SupplierID:  req.SupplierID,
			Description: req.Description,
			TotalCents:  req.TotalCents,
			Status:      enums.OrderStatusCreated,
		}
		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := s.funds.LockEscrow(ctx, tx, buyerID, order.ID, req.TotalCents); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(buyerID),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: orderNumber,
				BuyerID:     buyerID,
				SupplierID:  req.SupplierID,
				TotalCents:  req.TotalCents,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	view := NewOrderView(order)
	return &view, nil
}

func (s *service) AddMilestone(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID, req AddMilestoneRequest) (*OrderView, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if req.WeightPercent <= 0 || req.WeightPercent > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight percent must be between 1 and 100")
	}
	if req.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}

	maxMilestones := s.cfg.MaxMilestones
	if maxMilestones <= 0 {
		maxMilestones = 20
	}

	var view OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can define milestones")
		}
		if order.Status != enums.OrderStatusCreated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "milestones can only be added before the order starts")
		}
		if len(order.Milestones) >= maxMilestones {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("orders are limited to %d milestones", maxMilestones))
		}

		weightSum := 0
		for _, m := range order.Milestones {
			weightSum += m.WeightPercent
		}
		if weightSum+req.WeightPercent > 100 {
			return pkgerrors.New(pkgerrors.CodeValidation, "milestone weights cannot exceed 100 percent")
		}

		milestone := &models.Milestone{
			OrderID:       order.ID,
			Position:      len(order.Milestones) + 1,
			Description:   req.Description,
			WeightPercent: req.WeightPercent,
		}
		if err := repo.CreateMilestone(ctx, milestone); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create milestone")
		}
		order.Milestones = append(order.Milestones, *milestone)

		event := outbox.DomainEvent{
			EventType:     enums.EventMilestoneAdded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actorID),
			Data: payloads.MilestoneAddedEvent{
				OrderID:       order.ID,
				MilestoneID:   milestone.ID,
				Position:      milestone.Position,
				WeightPercent: milestone.WeightPercent,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		view = NewOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// StartOrder moves a fully weighted order into active work. The buyer starts
// once milestones cover the whole order; partial coverage blocks the
// transition.
func (s *service) StartOrder(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID) (*OrderView, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}

	var view OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can start the order")
		}
		if order.Status != enums.OrderStatusCreated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot start in current state")
		}
		if len(order.Milestones) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order needs at least one milestone to start")
		}

		weightSum := 0
		for _, m := range order.Milestones {
			weightSum += m.WeightPercent
		}
		if weightSum != 100 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "milestone weights must total 100 percent before starting")
		}

		now := time.Now()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":     enums.OrderStatusInProgress,
			"started_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start order")
		}
		order.Status = enums.OrderStatusInProgress
		order.StartedAt = &now

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStarted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actorID),
			Data: payloads.OrderStartedEvent{
				OrderID:   order.ID,
				StartedAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		view = NewOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) CompleteMilestone(ctx context.Context, actorID uuid.UUID, orderID, milestoneID uuid.UUID) (*OrderView, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}

	var view OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.SupplierID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the supplier can complete milestones")
		}
		if order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "milestones can only be completed while the order is in progress")
		}

		milestone := findMilestone(order, milestoneID)
		if milestone == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "milestone not found")
		}
		if milestone.Completed {
			return pkgerrors.New(pkgerrors.CodeConflict, "milestone already completed")
		}

		now := time.Now()
		if err := repo.UpdateMilestone(ctx, milestone.ID, map[string]any{
			"completed":    true,
			"completed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete milestone")
		}
		milestone.Completed = true
		milestone.CompletedAt = &now

		event := outbox.DomainEvent{
			EventType:     enums.EventMilestoneCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actorID),
			Data: payloads.MilestoneCompletedEvent{
				OrderID:     order.ID,
				MilestoneID: milestone.ID,
				Position:    milestone.Position,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		view = NewOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ApproveMilestone signs off delivered work and releases the weighted payment
// minus the platform fee. Approving the final milestone settles the order.
func (s *service) ApproveMilestone(ctx context.Context, actorID uuid.UUID, orderID, milestoneID uuid.UUID) (*OrderView, error) {
	started := time.Now()
	view, err := s.approveMilestone(ctx, actorID, orderID, milestoneID)
	s.observe("approve_milestone", started, err)
	return view, err
}

func (s *service) approveMilestone(ctx context.Context, actorID uuid.UUID, orderID, milestoneID uuid.UUID) (*OrderView, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}

	var view OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can approve milestones")
		}
		if order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "milestones can only be approved while the order is in progress")
		}

		milestone := findMilestone(order, milestoneID)
		if milestone == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "milestone not found")
		}
		if !milestone.Completed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "milestone must be completed before approval")
		}
		if milestone.Approved {
			return pkgerrors.New(pkgerrors.CodeConflict, "milestone already approved")
		}

		ledgerRow, err := s.platformRepo.WithTx(tx).FindForUpdate(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock platform ledger")
		}

		payment, fee, supplierShare := SplitPayment(order.TotalCents, milestone.WeightPercent, ledgerRow.FeePercent)

		metadata, _ := json.Marshal(map[string]any{
			"milestone_position": milestone.Position,
			"fee_percent":        ledgerRow.FeePercent,
		})
		if err := s.funds.ReleaseToSupplier(ctx, tx, order.ID, order.SupplierID, supplierShare, fee, metadata); err != nil {
			return err
		}

		now := time.Now()
		if err := repo.UpdateMilestone(ctx, milestone.ID, map[string]any{
			"approved":    true,
			"approved_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve milestone")
		}
		milestone.Approved = true
		milestone.ApprovedAt = &now

		orderUpdates := map[string]any{
			"paid_cents": order.PaidCents + payment,
		}
		order.PaidCents += payment

		allApproved := true
		for _, m := range order.Milestones {
			if !m.Approved {
				allApproved = false
				break
			}
		}
		if allApproved {
			orderUpdates["status"] = enums.OrderStatusCompleted
			orderUpdates["closed_at"] = now
			order.Status = enums.OrderStatusCompleted
			order.ClosedAt = &now
		}
		if err := repo.UpdateOrder(ctx, order.ID, orderUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		events := []outbox.DomainEvent{
			{
				EventType:     enums.EventMilestoneApproved,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actorRef(actorID),
				Data: payloads.MilestoneApprovedEvent{
					OrderID:     order.ID,
					MilestoneID: milestone.ID,
					Position:    milestone.Position,
				},
			},
			{
				EventType:     enums.EventPaymentReleased,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actorRef(actorID),
				Data: payloads.PaymentReleasedEvent{
					OrderID:            order.ID,
					MilestoneID:        milestone.ID,
					SupplierID:         order.SupplierID,
					PaymentCents:       payment,
					FeeCents:           fee,
					SupplierShareCents: supplierShare,
				},
			},
		}
		if allApproved {
			if err := s.suppliersRepo.WithTx(tx).IncrementOrdersCompleted(ctx, order.SupplierID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record supplier completion")
			}
			events = append(events, outbox.DomainEvent{
				EventType:     enums.EventOrderCompleted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actorRef(actorID),
				Data: payloads.OrderCompletedEvent{
					OrderID:    order.ID,
					SupplierID: order.SupplierID,
					PaidCents:  order.PaidCents,
					ClosedAt:   now,
				},
			})
		}
		for _, event := range events {
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		view = NewOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// CancelOrder refunds the buyer in full. Only orders that never started can
// be cancelled directly; later cancellation goes through dispute arbitration.
func (s *service) CancelOrder(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID) (*OrderView, error) {
	started := time.Now()
	view, err := s.cancelOrder(ctx, actorID, orderID)
	s.observe("cancel_order", started, err)
	return view, err
}

func (s *service) cancelOrder(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID) (*OrderView, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}

	var view OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can cancel the order")
		}
		if order.Status != enums.OrderStatusCreated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only unstarted orders can be cancelled")
		}

		refund := order.RemainingCents()
		if err := s.funds.RefundToBuyer(ctx, tx, order.ID, order.BuyerID, refund); err != nil {
			return err
		}

		now := time.Now()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":    enums.OrderStatusCancelled,
			"closed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		order.Status = enums.OrderStatusCancelled
		order.ClosedAt = &now

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actorID),
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				RefundCents: refund,
				ClosedAt:    now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		view = NewOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) GetOrder(ctx context.Context, actorID uuid.UUID, actorRole enums.AccountRole, orderID uuid.UUID) (*OrderView, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order")
	}
	if order.BuyerID != actorID && order.SupplierID != actorID && actorRole != enums.AccountRoleArbiter {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to account")
	}
	view := NewOrderView(order)
	return &view, nil
}

func (s *service) ListOrders(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]OrderView, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	orders, err := s.repo.ListOrdersByAccount(ctx, actorID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, NewOrderView(&orders[i]))
	}
	return views, nil
}

func (s *service) lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	return order, nil
}

func (s *service) observe(op string, started time.Time, err error) {
	s.metrics.ObserveDuration(op, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(op)
		return
	}
	s.metrics.IncSuccess(op)
}

func findMilestone(order *models.Order, milestoneID uuid.UUID) *models.Milestone {
	for i := range order.Milestones {
		if order.Milestones[i].ID == milestoneID {
			return &order.Milestones[i]
		}
	}
	return nil
}

func actorRef(accountID uuid.UUID) *outbox.ActorRef {
	return &outbox.ActorRef{AccountID: accountID, Role: string(enums.AccountRoleMember)}
}
