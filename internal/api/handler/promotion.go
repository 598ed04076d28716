package handler

import (
	"net/http"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/betflow/betflow-api/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PromotionHandler struct {
	svc *service.PromotionService
}

func NewPromotionHandler(svc *service.PromotionService) *PromotionHandler {
	return &PromotionHandler{svc: svc}
}

type promotionResponse struct {
	models.Promotion
	RolloverPercentage decimal.Decimal `json:"rollover_percentage"`
}

func newPromotionResponse(p models.Promotion) promotionResponse {
	return promotionResponse{Promotion: p, RolloverPercentage: p.RolloverPercentage()}
}

type createPromotionRequest struct {
	AccountID      uuid.UUID           `json:"account_id" validate:"required"`
	Description    string              `json:"description"`
	BonusAmount    decimal.Decimal     `json:"bonus_amount"`
	RolloverTarget decimal.NullDecimal `json:"rollover_target"`
	DeadlineDate   *Date               `json:"deadline_date"`
	Status         *string             `json:"status"`
	Notes          string              `json:"notes"`
}

type updatePromotionRequest struct {
	Description    *string          `json:"description"`
	BonusAmount    *decimal.Decimal `json:"bonus_amount"`
	RolloverTarget *decimal.Decimal `json:"rollover_target"`
	RolloverDone   *decimal.Decimal `json:"rollover_done"`
	DeadlineDate   *Date            `json:"deadline_date"`
	Status         *string          `json:"status"`
	Notes          *string          `json:"notes"`
}

type rolloverRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func parseStatusPtr(raw *string) (*domain.PromotionStatus, error) {
	if raw == nil {
		return nil, nil
	}
	status, err := domain.ParsePromotionStatus(*raw)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPromotionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := parseStatusPtr(req.Status)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	p, err := h.svc.Create(r.Context(), service.CreatePromotionCommand{
		AccountID:      req.AccountID,
		Description:    req.Description,
		BonusAmount:    req.BonusAmount,
		RolloverTarget: req.RolloverTarget,
		DeadlineDate:   req.DeadlineDate.Ptr(),
		Status:         status,
		Notes:          req.Notes,
		ActorID:        requestActor(r),
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create promotion")
		return
	}
	RespondJSON(w, http.StatusCreated, newPromotionResponse(*p))
}

func (h *PromotionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to load promotion")
		return
	}
	RespondJSON(w, http.StatusOK, newPromotionResponse(*p))
}

// List supports ?account_id=, ?status= and a ?deadline_from=&deadline_to= window.
func (h *PromotionHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		filter repository.PromotionFilter
		err    error
	)
	if filter.AccountID, err = queryUUID(r, "account_id"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		if filter.Status, err = parseStatusPtr(&raw); err != nil {
			writeServiceError(w, r, err, "")
			return
		}
	}
	if filter.DeadlineFrom, err = queryDate(r, "deadline_from"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	if filter.DeadlineTo, err = queryDate(r, "deadline_to"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	promotions, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "failed to list promotions")
		return
	}
	out := make([]promotionResponse, 0, len(promotions))
	for _, p := range promotions {
		out = append(out, newPromotionResponse(p))
	}
	RespondJSON(w, http.StatusOK, out)
}

func (h *PromotionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updatePromotionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := parseStatusPtr(req.Status)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	p, err := h.svc.Update(r.Context(), id, service.PromotionPatch{
		Description:    req.Description,
		BonusAmount:    req.BonusAmount,
		RolloverTarget: req.RolloverTarget,
		RolloverDone:   req.RolloverDone,
		DeadlineDate:   req.DeadlineDate.Ptr(),
		Status:         status,
		Notes:          req.Notes,
	}, requestActor(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to update promotion")
		return
	}
	RespondJSON(w, http.StatusOK, newPromotionResponse(*p))
}

// ApplyRollover adds wagered volume to the promotion's rollover.
func (h *PromotionHandler) ApplyRollover(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req rolloverRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.ApplyRollover(r.Context(), id, req.Amount, requestActor(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to apply rollover")
		return
	}
	RespondJSON(w, http.StatusOK, newPromotionResponse(*p))
}

func (h *PromotionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id, requestActor(r)); err != nil {
		writeServiceError(w, r, err, "failed to delete promotion")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
