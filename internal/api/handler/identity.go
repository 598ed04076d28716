package handler

import (
	"net/http"

	"github.com/betflow/betflow-api/internal/repository"
	"github.com/betflow/betflow-api/internal/service"
	"github.com/google/uuid"
)

type IdentityHandler struct {
	svc *service.IdentityService
}

func NewIdentityHandler(svc *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{svc: svc}
}

type createIdentityRequest struct {
	FirstName          string     `json:"first_name" validate:"required"`
	LastName           string     `json:"last_name" validate:"required"`
	FiscalCode         string     `json:"fiscal_code" validate:"required"`
	DocumentExpiryDate *Date      `json:"document_expiry_date"`
	Notes              string     `json:"notes"`
	ManagerID          *uuid.UUID `json:"manager_id"`
}

type updateIdentityRequest struct {
	FirstName          *string    `json:"first_name"`
	LastName           *string    `json:"last_name"`
	FiscalCode         *string    `json:"fiscal_code"`
	DocumentExpiryDate *Date      `json:"document_expiry_date"`
	Notes              *string    `json:"notes"`
	ManagerID          *uuid.UUID `json:"manager_id"`
}

func (h *IdentityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIdentityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.Create(r.Context(), service.CreateIdentityCommand{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		FiscalCode:         req.FiscalCode,
		DocumentExpiryDate: req.DocumentExpiryDate.Ptr(),
		Notes:              req.Notes,
		ManagerID:          req.ManagerID,
		ActorID:            requestActor(r),
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create identity")
		return
	}
	RespondJSON(w, http.StatusCreated, view)
}

func (h *IdentityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to load identity")
		return
	}
	RespondJSON(w, http.StatusOK, view)
}

// List supports ?manager_id= and a document expiry window ?expiring_from=&expiring_to=.
func (h *IdentityHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		filter repository.IdentityFilter
		err    error
	)
	if filter.ManagerID, err = queryUUID(r, "manager_id"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	if filter.DocumentExpiryFrom, err = queryDate(r, "expiring_from"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	if filter.DocumentExpiryTo, err = queryDate(r, "expiring_to"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	views, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "failed to list identities")
		return
	}
	RespondJSON(w, http.StatusOK, views)
}

func (h *IdentityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateIdentityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.Update(r.Context(), id, service.IdentityPatch{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		FiscalCode:         req.FiscalCode,
		DocumentExpiryDate: req.DocumentExpiryDate.Ptr(),
		Notes:              req.Notes,
		ManagerID:          req.ManagerID,
	}, requestActor(r))
	if err != nil {
		writeServiceError(w, r, err, "failed to update identity")
		return
	}
	RespondJSON(w, http.StatusOK, view)
}

func (h *IdentityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id, requestActor(r)); err != nil {
		writeServiceError(w, r, err, "failed to delete identity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
