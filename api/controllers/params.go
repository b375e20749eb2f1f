package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Smartdevs17/supply-chain-payment/api/middleware"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
	pkgerrors "github.com/Smartdevs17/supply-chain-payment/pkg/errors"
)

// actorID resolves the authenticated account from the request context.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.AccountIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid account identity")
	}
	return id, nil
}

func actorRole(r *http.Request) enums.AccountRole {
	return enums.AccountRole(middleware.RoleFromContext(r.Context()))
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name)
	}
	return id, nil
}
