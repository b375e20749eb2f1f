package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/Smartdevs17/supply-chain-payment/pkg/db"
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

// Service defines supplier directory operations.
type Service interface {
	Register(ctx context.Context, accountID uuid.UUID, req RegisterRequest) (*SupplierSummary, error)
	Verify(ctx context.Context, arbiterID uuid.UUID, arbiterRole enums.AccountRole, accountID uuid.UUID) (*SupplierSummary, error)
	Get(ctx context.Context, accountID uuid.UUID) (*SupplierSummary, error)
	List(ctx context.Context, query ListQuery) ([]SupplierSummary, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds a suppliers service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("suppliers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: ob}, nil
}

func (s *service) Register(ctx context.Context, accountID uuid.UUID, req RegisterRequest) (*SupplierSummary, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name required")
	}
	contactEmail := strings.ToLower(strings.TrimSpace(req.ContactEmail))
	if contactEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact email required")
	}

	supplier := &models.Supplier{
		AccountID:    accountID,
		DisplayName:  displayName,
		ContactEmail: contactEmail,
		ContactTags:  req.ContactTags,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, supplier); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "supplier already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventSupplierRegistered,
			AggregateType: enums.AggregateSupplier,
			AggregateID:   accountID,
			Version:       1,
			Actor:         &outbox.ActorRef{AccountID: accountID, Role: string(enums.AccountRoleMember)},
			Data: payloads.SupplierRegisteredEvent{
				AccountID:   accountID,
				DisplayName: displayName,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	summary := NewSupplierSummary(supplier)
	return &summary, nil
}

// Verify flips the monotonic verified flag. Re-verifying is a conflict, not a
// silent no-op, so operators notice duplicated admin actions.
func (s *service) Verify(ctx context.Context, arbiterID uuid.UUID, arbiterRole enums.AccountRole, accountID uuid.UUID) (*SupplierSummary, error) {
	if arbiterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if arbiterRole != enums.AccountRoleArbiter {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "arbiter role required")
	}
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier account id required")
	}

	var summary SupplierSummary
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		supplier, err := repo.FindByAccountID(ctx, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find supplier")
		}
		if supplier.Verified {
			return pkgerrors.New(pkgerrors.CodeConflict, "supplier already verified")
		}

		now := time.Now()
		if err := repo.MarkVerified(ctx, accountID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark verified")
		}
		supplier.Verified = true
		supplier.VerifiedAt = &now

		event := outbox.DomainEvent{
			EventType:     enums.EventSupplierVerified,
			AggregateType: enums.AggregateSupplier,
			AggregateID:   accountID,
			Version:       1,
			Actor:         &outbox.ActorRef{AccountID: arbiterID, Role: string(arbiterRole)},
			Data: payloads.SupplierVerifiedEvent{
				AccountID:  accountID,
				VerifiedAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		summary = NewSupplierSummary(supplier)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *service) Get(ctx context.Context, accountID uuid.UUID) (*SupplierSummary, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier account id required")
	}
	supplier, err := s.repo.FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find supplier")
	}
	summary := NewSupplierSummary(supplier)
	return &summary, nil
}

func (s *service) List(ctx context.Context, query ListQuery) ([]SupplierSummary, error) {
	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	summaries := make([]SupplierSummary, 0, len(rows))
	for i := range rows {
		summaries = append(summaries, NewSupplierSummary(&rows[i]))
	}
	return summaries, nil
}
