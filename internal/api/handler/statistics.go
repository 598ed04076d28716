package handler

import (
	"net/http"

	"github.com/betflow/betflow-api/internal/service"
)

type StatisticsHandler struct {
	stats *service.StatisticsService
}

func NewStatisticsHandler(stats *service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{stats: stats}
}

func (h *StatisticsHandler) Identities(w http.ResponseWriter, r *http.Request) {
	out, err := h.stats.AllIdentityProfits(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to compute profits")
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

func (h *StatisticsHandler) Identity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.stats.ProfitForIdentity(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to compute profit")
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

func (h *StatisticsHandler) Profitable(w http.ResponseWriter, r *http.Request) {
	out, err := h.stats.ProfitableIdentities(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to rank identities")
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

func (h *StatisticsHandler) Unprofitable(w http.ResponseWriter, r *http.Request) {
	out, err := h.stats.UnprofitableIdentities(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to rank identities")
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

func (h *StatisticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	out, err := h.stats.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to build dashboard")
		return
	}
	RespondJSON(w, http.StatusOK, out)
}
