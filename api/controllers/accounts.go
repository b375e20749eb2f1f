package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Smartdevs17/supply-chain-payment/api/responses"
	"github.com/Smartdevs17/supply-chain-payment/api/validators"
	"github.com/Smartdevs17/supply-chain-payment/internal/accounts"
	"github.com/Smartdevs17/supply-chain-payment/internal/ledger"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db/models"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
	pkgerrors "github.com/Smartdevs17/supply-chain-payment/pkg/errors"
	"github.com/Smartdevs17/supply-chain-payment/pkg/logger"
)

// AccountMe returns the caller's account summary.
func AccountMe(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// AccountDeposit credits the caller's spendable balance.
func AccountDeposit(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body accounts.DepositRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Deposit(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

type ledgerEntryView struct {
	ID        uuid.UUID             `json:"id"`
	OrderID   *uuid.UUID            `json:"order_id,omitempty"`
	Type      enums.LedgerEntryType `json:"type"`
	Amount    string                `json:"amount"`
	CreatedAt time.Time             `json:"created_at"`
}

func newLedgerEntryViews(entries []models.LedgerEntry) []ledgerEntryView {
	views := make([]ledgerEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, ledgerEntryView{
			ID:        entry.ID,
			OrderID:   entry.OrderID,
			Type:      entry.Type,
			Amount:    accounts.FormatCents(entry.AmountCents),
			CreatedAt: entry.CreatedAt,
		})
	}
	return views
}

// AccountLedger lists the caller's fund movements, most recent first.
func AccountLedger(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListByAccount(r.Context(), id, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newLedgerEntryViews(entries))
	}
}
