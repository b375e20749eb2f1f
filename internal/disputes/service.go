package disputes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Smartdevs17/supply-chain-payment/internal/escrow"
	"github.com/Smartdevs17/supply-chain-payment/internal/platform"
	"github.com/Smartdevs17/supply-chain-payment/internal/suppliers"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
	pkgerrors "github.com/Smartdevs17/supply-chain-payment/pkg/errors"
	"github.com/Smartdevs17/supply-chain-payment/pkg/outbox"
	"github.com/Smartdevs17/supply-chain-payment/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RaiseRequest freezes an in-progress order pending arbitration.
type RaiseRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

// ResolveRequest is the arbiter's binary ruling on a frozen order.
type ResolveRequest struct {
	FavorSupplier bool `json:"favor_supplier"`
}

// Service defines dispute lifecycle operations.
type Service interface {
	Raise(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID, req RaiseRequest) (*escrow.OrderView, error)
	Resolve(ctx context.Context, arbiterID uuid.UUID, arbiterRole enums.AccountRole, orderID uuid.UUID, req ResolveRequest) (*escrow.OrderView, error)
}

type service struct {
	repo          escrow.Repository
	suppliersRepo suppliers.Repository
	platformRepo  platform.Repository
	funds         *escrow.FundsEngine
	tx            txRunner
	outbox        outboxPublisher
}

// ServiceParams bundles the dependencies required to build a disputes service.
type ServiceParams struct {
	Repo          escrow.Repository
	SuppliersRepo suppliers.Repository
	PlatformRepo  platform.Repository
	Funds         *escrow.FundsEngine
	Tx            txRunner
	Outbox        outboxPublisher
}

// NewService constructs a disputes service with the provided dependencies.
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
	}, nil
}

// Raise freezes the order: no milestone activity is allowed until an arbiter
// rules. Either party to the order can raise.
func (s *service) Raise(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID, req RaiseRequest) (*escrow.OrderView, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}

	var view escrow.OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != actorID && order.SupplierID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to account")
		}
		if order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "disputes can only be raised on in-progress orders")
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":         enums.OrderStatusDisputed,
			"dispute_raised": true,
			"dispute_reason": reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "freeze order")
		}
		order.Status = enums.OrderStatusDisputed
		order.DisputeRaised = true
		order.DisputeReason = &reason

		event := outbox.DomainEvent{
			EventType:     enums.EventDisputeRaised,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{AccountID: actorID, Role: string(enums.AccountRoleMember)},
			Data: payloads.DisputeRaisedEvent{
				OrderID:  order.ID,
				RaisedBy: actorID,
				Reason:   reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		view = escrow.NewOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Resolve settles the remaining escrow per the arbiter's ruling. Favoring the
// supplier releases the whole remainder as a fee'd payment and completes the
// order; favoring the buyer refunds the remainder without a fee and cancels it.
func (s *service) Resolve(ctx context.Context, arbiterID uuid.UUID, arbiterRole enums.AccountRole, orderID uuid.UUID, req ResolveRequest) (*escrow.OrderView, error) {
	if arbiterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if arbiterRole != enums.AccountRoleArbiter {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "arbiter role required")
	}

	var view escrow.OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusDisputed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only disputed orders can be resolved")
		}

		ledgerRow, err := s.platformRepo.WithTx(tx).FindForUpdate(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock platform ledger")
		}

		remaining := order.RemainingCents()
		var award, fee, supplierShare, refund int64
		finalStatus := enums.OrderStatusCancelled
		if req.FavorSupplier {
			award = remaining
			fee = remaining * int64(ledgerRow.FeePercent) / 100
			supplierShare = remaining - fee
			finalStatus = enums.OrderStatusCompleted

			metadata, _ := json.Marshal(map[string]any{
				"dispute_resolution": true,
				"fee_percent":        ledgerRow.FeePercent,
			})
			if err := s.funds.ReleaseToSupplier(ctx, tx, order.ID, order.SupplierID, supplierShare, fee, metadata); err != nil {
				return err
			}
		} else {
			refund = remaining
			if err := s.funds.RefundToBuyer(ctx, tx, order.ID, order.BuyerID, refund); err != nil {
				return err
			}
		}

		now := time.Now()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":     finalStatus,
			"paid_cents": order.PaidCents + award,
			"closed_at":  now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order")
		}
		order.Status = finalStatus
		order.PaidCents += award
		order.ClosedAt = &now

		events := []outbox.DomainEvent{
			{
				EventType:     enums.EventDisputeResolved,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         &outbox.ActorRef{AccountID: arbiterID, Role: string(arbiterRole)},
				Data: payloads.DisputeResolvedEvent{
					OrderID:            order.ID,
					ArbiterID:          arbiterID,
					FavorSupplier:      req.FavorSupplier,
					SupplierShareCents: supplierShare,
					BuyerRefundCents:   refund,
					FeeCents:           fee,
					FinalStatus:        finalStatus,
				},
			},
		}
		if finalStatus == enums.OrderStatusCompleted {
			if err := s.suppliersRepo.WithTx(tx).IncrementOrdersCompleted(ctx, order.SupplierID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record supplier completion")
			}
			events = append(events, outbox.DomainEvent{
				EventType:     enums.EventOrderCompleted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         &outbox.ActorRef{AccountID: arbiterID, Role: string(arbiterRole)},
				Data: payloads.OrderCompletedEvent{
					OrderID:    order.ID,
					SupplierID: order.SupplierID,
					PaidCents:  order.PaidCents,
					ClosedAt:   now,
				},
			})
		} else {
			events = append(events, outbox.DomainEvent{
				EventType:     enums.EventOrderCancelled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         &outbox.ActorRef{AccountID: arbiterID, Role: string(arbiterRole)},
				Data: payloads.OrderCancelledEvent{
					OrderID:     order.ID,
					BuyerID:     order.BuyerID,
					RefundCents: refund,
					ClosedAt:    now,
				},
			})
		}
		for _, event := range events {
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		view = escrow.NewOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) lockOrder(ctx context.Context, repo escrow.Repository, orderID uuid.UUID) (*models.Order, error) {
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
