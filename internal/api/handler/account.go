package handler

import (
	"net/http"

	"github.com/betflow/betflow-api/internal/repository"
	"github.com/betflow/betflow-api/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

type createAccountRequest struct {
	IdentityID     uuid.UUID       `json:"identity_id" validate:"required"`
	PlatformID     uuid.UUID       `json:"platform_id" validate:"required"`
	Username       string          `json:"username" validate:"required"`
	Password       string          `json:"password"`
	Email          string          `json:"email" validate:"omitempty,email"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Notes          string          `json:"notes"`
	IsActive       *bool           `json:"is_active"`
	IsLimited      bool            `json:"is_limited"`
}

type updateAccountRequest struct {
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Notes     *string `json:"notes"`
	IsActive  *bool   `json:"is_active"`
	IsLimited *bool   `json:"is_limited"`
}

type setBalanceRequest struct {
	Balance decimal.Decimal `json:"balance"`
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.Create(r.Context(), service.CreateAccountCommand{
		IdentityID:     req.IdentityID,
		PlatformID:     req.PlatformID,
		Username:       req.Username,
		Password:       req.Password,
		Email:          req.Email,
		InitialBalance: req.InitialBalance,
		Notes:          req.Notes,
		IsActive:       req.IsActive,
		IsLimited:      req.IsLimited,
		ActorID:        requestActor(r),
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create account")
		return
	}
	RespondJSON(w, http.StatusCreated, a)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to load account")
		return
	}
	RespondJSON(w, http.StatusOK, a)
}

// List supports ?identity_id= and ?platform_id=.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		filter repository.AccountFilter
		err    error
	)
	if filter.IdentityID, err = queryUUID(r, "identity_id"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	if filter.PlatformID, err = queryUUID(r, "platform_id"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	accounts, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "failed to list accounts")
		return
	}
	RespondJSON(w, http.StatusOK, accounts)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.Update(r.Context(), id, service.AccountPatch{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		Notes:     req.Notes,
		IsActive:  req.IsActive,
		IsLimited: req.IsLimited,
	}, requestActor(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to update account")
		return
	}
	RespondJSON(w, http.StatusOK, a)
}

// SetBalance overwrites the balance to match the platform.
func (h *AccountHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req setBalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.SetBalance(r.Context(), id, req.Balance, requestActor(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to set balance")
		return
	}
	RespondJSON(w, http.StatusOK, a)
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id, requestActor(r)); err != nil {
		writeServiceError(w, r, err, "failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
