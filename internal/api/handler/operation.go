package handler

import (
	"net/http"
	"strconv"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/betflow/betflow-api/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationHandler exposes the ledger: deposits, withdrawals and bets.
type OperationHandler struct {
	ledger *service.LedgerService
}

func NewOperationHandler(ledger *service.LedgerService) *OperationHandler {
	return &OperationHandler{ledger: ledger}
}

type depositRequest struct {
	AccountID     uuid.UUID       `json:"account_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
	OperationDate *Date           `json:"operation_date"`
}

type withdrawalRequest struct {
	AccountID     uuid.UUID       `json:"account_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         string          `json:"notes"`
	OperationDate *Date           `json:"operation_date"`
}

type betRequest struct {
	AccountID     uuid.UUID       `json:"account_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	EventName     string          `json:"event_name"`
	Odds          decimal.Decimal `json:"odds"`
	Notes         string          `json:"notes"`
	OperationDate *Date           `json:"operation_date"`
}

type withdrawalStatusRequest struct {
	Status      *string `json:"status"`
	ArrivalDate *Date   `json:"arrival_date"`
}

type settleBetRequest struct {
	Outcome string `json:"outcome" validate:"required"`
}

func (h *OperationHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	op, err := h.ledger.RecordDeposit(r.Context(), service.DepositCommand{
		AccountID:     req.AccountID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		OperationDate: req.OperationDate.Ptr(),
		ActorID:       requestActor(r),
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to record deposit")
		return
	}
	RespondJSON(w, http.StatusCreated, op)
}

func (h *OperationHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req withdrawalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	op, err := h.ledger.RecordWithdrawal(r.Context(), service.WithdrawalCommand{
		AccountID:     req.AccountID,
		Amount:        req.Amount,
		Notes:         req.Notes,
		OperationDate: req.OperationDate.Ptr(),
		ActorID:       requestActor(r),
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to record withdrawal")
		return
	}
	RespondJSON(w, http.StatusCreated, op)
}

func (h *OperationHandler) CreateBet(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	op, err := h.ledger.RecordBet(r.Context(), service.BetCommand{
		AccountID:     req.AccountID,
		Amount:        req.Amount,
		EventName:     req.EventName,
		Odds:          req.Odds,
		Notes:         req.Notes,
		OperationDate: req.OperationDate.Ptr(),
		ActorID:       requestActor(r),
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to record bet")
		return
	}
	RespondJSON(w, http.StatusCreated, op)
}

func (h *OperationHandler) UpdateWithdrawalStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req withdrawalStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cmd := service.WithdrawalStatusCommand{
		OperationID: id,
		ArrivalDate: req.ArrivalDate.Ptr(),
		ActorID:     requestActor(r),
	}
	if req.Status != nil {
		status, err := domain.ParseWithdrawalStatus(*req.Status)
		if err != nil {
			writeServiceError(w, r, err, "")
			return
		}
		cmd.Status = &status
	}
	op, err := h.ledger.UpdateWithdrawalStatus(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, r, err, "failed to update withdrawal")
		return
	}
	RespondJSON(w, http.StatusOK, op)
}

func (h *OperationHandler) SettleBet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req settleBetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	outcome, err := domain.ParseBetOutcome(req.Outcome)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	op, err := h.ledger.SettleBet(r.Context(), service.SettleBetCommand{
		OperationID: id,
		Outcome:     outcome,
		ActorID:     requestActor(r),
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to settle bet")
		return
	}
	RespondJSON(w, http.StatusOK, op)
}

func (h *OperationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	op, err := h.ledger.GetOperation(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to load operation")
		return
	}
	RespondJSON(w, http.StatusOK, op)
}

// List filters by ?account_id=, ?identity_id=, ?kind=, ?status= (withdrawals),
// ?pending=true (unsettled bets) and the ?from=&to= date window.
func (h *OperationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := operationFilter(r)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	ops, err := h.ledger.ListOperations(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "failed to list operations")
		return
	}
	RespondJSON(w, http.StatusOK, ops)
}

func operationFilter(r *http.Request) (repository.OperationFilter, error) {
	var (
		f   repository.OperationFilter
		err error
	)
	q := r.URL.Query()
	if f.AccountID, err = queryUUID(r, "account_id"); err != nil {
		return f, err
	}
	if f.IdentityID, err = queryUUID(r, "identity_id"); err != nil {
		return f, err
	}
	if raw := q.Get("kind"); raw != "" {
		kind, err := domain.ParseOperationKind(raw)
		if err != nil {
			return f, err
		}
		f.Kind = &kind
	}
	if raw := q.Get("status"); raw != "" {
		status, err := domain.ParseWithdrawalStatus(raw)
		if err != nil {
			return f, err
		}
		f.WithdrawalStatus = &status
	}
	if raw := q.Get("pending"); raw != "" {
		if f.PendingBets, err = strconv.ParseBool(raw); err != nil {
			return f, domain.NewValidationError("pending", "must be a boolean")
		}
	}
	if f.From, err = queryDate(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *OperationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.ledger.DeleteOperation(r.Context(), id, requestActor(r)); err != nil {
		writeServiceError(w, r, err, "failed to delete operation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
