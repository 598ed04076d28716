package handler

import (
	"net/http"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/betflow/betflow-api/internal/service"
)

type PlatformHandler struct {
	svc *service.PlatformService
}

func NewPlatformHandler(svc *service.PlatformService) *PlatformHandler {
	return &PlatformHandler{svc: svc}
}

type createPlatformRequest struct {
	Name       string `json:"name" validate:"required"`
	WebsiteURL string `json:"website_url"`
	Type       string `json:"type" validate:"required"`
}

type updatePlatformRequest struct {
	Name       *string `json:"name"`
	WebsiteURL *string `json:"website_url"`
	Type       *string `json:"type"`
}

func (h *PlatformHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPlatformRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	platformType, err := domain.ParsePlatformType(req.Type)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	p, err := h.svc.Create(r.Context(), service.CreatePlatformCommand{
		Name:       req.Name,
		WebsiteURL: req.WebsiteURL,
		Type:       platformType,
		ActorID:    requestActor(r),
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create platform")
		return
	}
	RespondJSON(w, http.StatusCreated, p)
}

func (h *PlatformHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to load platform")
		return
	}
	RespondJSON(w, http.StatusOK, p)
}

// List supports ?type= and a case-insensitive ?name= substring search.
func (h *PlatformHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.PlatformFilter{Name: r.URL.Query().Get("name")}
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := domain.ParsePlatformType(raw)
		if err != nil {
			writeServiceError(w, r, err, "")
			return
		}
		filter.Type = &t
	}
	platforms, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "failed to list platforms")
		return
	}
	RespondJSON(w, http.StatusOK, platforms)
}

func (h *PlatformHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updatePlatformRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch := service.PlatformPatch{Name: req.Name, WebsiteURL: req.WebsiteURL}
	if req.Type != nil {
		t, err := domain.ParsePlatformType(*req.Type)
		if err != nil {
			writeServiceError(w, r, err, "")
			return
		}
		patch.Type = &t
	}
	p, err := h.svc.Update(r.Context(), id, patch, requestActor(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to update platform")
		return
	}
	RespondJSON(w, http.StatusOK, p)
}

func (h *PlatformHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id, requestActor(r)); err != nil {
		writeServiceError(w, r, err, "failed to delete platform")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
