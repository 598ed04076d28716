package handler

import (
	"net/http"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/service"
	"github.com/shopspring/decimal"
)

type CurrencyHandler struct {
	currency *service.CurrencyService
}

func NewCurrencyHandler(currency *service.CurrencyService) *CurrencyHandler {
	return &CurrencyHandler{currency: currency}
}

// Convert answers GET /currency/convert?amount=100&from=EUR&to=USD.
func (h *CurrencyHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		writeServiceError(w, r, domain.NewValidationError("amount", "must be a decimal number"), "")
		return
	}
	out, err := h.currency.Convert(r.Context(), amount, q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, r, err, "failed to convert amount")
		return
	}
	RespondJSON(w, http.StatusOK, out)
}
