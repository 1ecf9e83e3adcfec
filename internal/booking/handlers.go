package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-yard/internal/common"
)

// Handler exposes booking endpoints.
type Handler struct {
	Store    Store
	Svc      *Service
	Validate *validator.Validate
}

type bookingPayload struct {
	ClientID       string `json:"client_id" validate:"required,uuid"`
	Reference      string `json:"reference" validate:"required,min=3,max=40"`
	SizeClass      string `json:"size_class" validate:"required"`
	ContainerCount int    `json:"container_count" validate:"required,gte=1,lte=500"`
	ExpectedDate   string `json:"expected_date" validate:"required"`
}

type transitionPayload struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled"`
}

// List returns bookings filtered by client and status.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 50)

	var clientID *uuid.UUID
	if raw := strings.TrimSpace(r.URL.Query().Get("client_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid client_id", nil)
			return
		}
		clientID = &id
	}
	var status *Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s := Status(raw)
		status = &s
	}

	list, err := h.Store.List(r.Context(), clientID, status, perPage, common.Offset(page, perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list bookings", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": list,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(list)},
	})
}

// Get returns a single booking.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	b, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "booking not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load booking", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": b})
}

// Create registers a new pending booking.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload bookingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}
	clientID, err := uuid.Parse(payload.ClientID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "client_id must be a valid id", nil)
		return
	}
	expected, err := common.ParseDate(payload.ExpectedDate)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "expected_date must be formatted as "+common.DateLayout, nil)
		return
	}

	b := &Booking{
		ClientID:       clientID,
		Reference:      strings.ToUpper(strings.TrimSpace(payload.Reference)),
		SizeClass:      strings.TrimSpace(payload.SizeClass),
		ContainerCount: payload.ContainerCount,
		ExpectedDate:   expected,
	}
	if err := h.Store.Create(r.Context(), b); err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "booking reference already in use", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create booking", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": b})
}

// Transition moves a booking to a new status.
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var payload transitionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}

	b, err := h.Svc.Transition(r.Context(), id, Status(payload.Status))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "booking not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update booking", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": b})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid booking id", nil)
		return uuid.Nil, false
	}
	return id, true
}
