package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Smartdevs17/supply-chain-payment/internal/ledger"
	pkgAuth "github.com/Smartdevs17/supply-chain-payment/pkg/auth"
	"github.com/Smartdevs17/supply-chain-payment/pkg/config"
	dbpkg "github.com/Smartdevs17/supply-chain-payment/pkg/db"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
	pkgerrors "github.com/Smartdevs17/supply-chain-payment/pkg/errors"
	"github.com/Smartdevs17/supply-chain-payment/pkg/outbox"
	"github.com/Smartdevs17/supply-chain-payment/pkg/outbox/payloads"
	"github.com/Smartdevs17/supply-chain-payment/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines account lifecycle and balance operations.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AccountSummary, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Deposit(ctx context.Context, accountID uuid.UUID, req DepositRequest) (*AccountSummary, error)
	Get(ctx context.Context, accountID uuid.UUID) (*AccountSummary, error)
}

type service struct {
	repo        Repository
	ledgerRepo  ledger.Repository
	tx          txRunner
	outbox      outboxPublisher
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build an accounts service.
type ServiceParams struct {
	Repo        Repository
	LedgerRepo  ledger.Repository
	Tx          txRunner
	Outbox      outboxPublisher
	JWTConfig   config.JWTConfig
	PasswordCfg config.PasswordConfig
}

// NewService constructs an accounts service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
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
		repo:        params.Repo,
		ledgerRepo:  params.LedgerRepo,
		tx:          params.Tx,
		outbox:      params.Outbox,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordCfg,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AccountSummary, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if len(req.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	account := &models.Account{
		Email:        email,
		PasswordHash: hash,
		Role:         enums.AccountRoleMember,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_accounts_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}

	summary := NewAccountSummary(account)
	return &summary, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find account")
	}

	ok, err := security.VerifyPassword(req.Password, account.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	payload := pkgAuth.AccessTokenPayload{
		AccountID: account.ID,
		Role:      account.Role,
		JTI:       uuid.NewString(),
	}
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now(), payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken: token,
		Account:     NewAccountSummary(account),
	}, nil
}

func (s *service) Deposit(ctx context.Context, accountID uuid.UUID, req DepositRequest) (*AccountSummary, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}

	var summary AccountSummary
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.FindByIDForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock account")
		}

		if err := repo.AddToBalance(ctx, account.ID, req.AmountCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit balance")
		}
		account.AvailableCents += req.AmountCents

		entry := &models.LedgerEntry{
			AccountID:   account.ID,
			Type:        enums.LedgerEntryTypeDeposit,
			AmountCents: req.AmountCents,
		}
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record deposit")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventAccountDeposited,
			AggregateType: enums.AggregateAccount,
			AggregateID:   account.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{AccountID: account.ID, Role: string(account.Role)},
			Data: payloads.AccountDepositedEvent{
				AccountID:    account.ID,
				AmountCents:  req.AmountCents,
				BalanceCents: account.AvailableCents,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		summary = NewAccountSummary(account)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *service) Get(ctx context.Context, accountID uuid.UUID) (*AccountSummary, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find account")
	}
	summary := NewAccountSummary(account)
	return &summary, nil
}
