package rates

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-yard/internal/common"
)

// Handler exposes administrative tariff management endpoints.
type Handler struct {
	Store    Store
	Svc      *Service
	Validate *validator.Validate
}

type schedulePayload struct {
	ClientID         *string `json:"client_id" validate:"omitempty,uuid"`
	SizeClass        string  `json:"size_class" validate:"required"`
	StoragePerDay    string  `json:"storage_per_day" validate:"required"`
	FreeDays         int     `json:"free_days" validate:"gte=0"`
	HandlingPerEvent string  `json:"handling_per_event" validate:"required"`
}

// List returns tariffs ordered by size class, defaults first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 50)
	list, err := h.Store.List(r.Context(), perPage, common.Offset(page, perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list tariffs", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": list,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(list)},
	})
}

// Create inserts a new tariff row.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.Store.Create(r.Context(), schedule); err != nil {
		if errors.Is(err, ErrDuplicate) {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "tariff already exists for this client and size", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create tariff", nil)
		return
	}
	h.invalidate(r, schedule)
	common.JSON(w, http.StatusCreated, map[string]any{"data": schedule})
}

// Update mutates an existing tariff identified by id.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tariff id", nil)
		return
	}
	schedule, ok := h.decode(w, r)
	if !ok {
		return
	}
	schedule.ID = id
	if err := h.Store.Update(r.Context(), schedule); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "tariff not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update tariff", nil)
		return
	}
	h.invalidate(r, schedule)
	common.JSON(w, http.StatusOK, map[string]any{"data": schedule})
}

// Delete removes a tariff row.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tariff id", nil)
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "tariff not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete tariff", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*Schedule, bool) {
	var payload schedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return nil, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return nil, false
		}
	}

	schedule := &Schedule{SizeClass: strings.TrimSpace(payload.SizeClass), FreeDays: payload.FreeDays}
	if payload.ClientID != nil && strings.TrimSpace(*payload.ClientID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*payload.ClientID))
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "client_id must be a valid id", nil)
			return nil, false
		}
		schedule.ClientID = &id
	}

	var err error
	if schedule.StoragePerDay, err = decimal.NewFromString(strings.TrimSpace(payload.StoragePerDay)); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "storage_per_day must be a decimal amount", nil)
		return nil, false
	}
	if schedule.HandlingPerEvent, err = decimal.NewFromString(strings.TrimSpace(payload.HandlingPerEvent)); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "handling_per_event must be a decimal amount", nil)
		return nil, false
	}
	if schedule.StoragePerDay.IsNegative() || schedule.HandlingPerEvent.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "rates must not be negative", nil)
		return nil, false
	}
	return schedule, true
}

func (h *Handler) invalidate(r *http.Request, schedule *Schedule) {
	if h.Svc != nil {
		h.Svc.InvalidateFor(r.Context(), schedule.ClientID, schedule.SizeClass)
	}
}
