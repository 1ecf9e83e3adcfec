package inventory

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

// Handler exposes gate operations and movement lookups.
type Handler struct {
	Store    Store
	Svc      *Service
	Validate *validator.Validate
}

type gateInPayload struct {
	ContainerID string  `json:"container_id" validate:"required,min=4,max=20"`
	ClientID    string  `json:"client_id" validate:"required,uuid"`
	SizeClass   string  `json:"size_class" validate:"required"`
	BookingID   *string `json:"booking_id" validate:"omitempty,uuid"`
	DateIn      string  `json:"date_in" validate:"required"`
}

type gateOutPayload struct {
	ContainerID string `json:"container_id" validate:"required,min=4,max=20"`
	DateOut     string `json:"date_out" validate:"required"`
}

// GateIn registers a container entry.
func (h *Handler) GateIn(w http.ResponseWriter, r *http.Request) {
	var payload gateInPayload
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
	dateIn, err := common.ParseDate(payload.DateIn)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "date_in must be formatted as "+common.DateLayout, nil)
		return
	}
	in := GateInInput{
		ContainerID: payload.ContainerID,
		ClientID:    clientID,
		SizeClass:   strings.TrimSpace(payload.SizeClass),
		DateIn:      dateIn,
	}
	if payload.BookingID != nil && strings.TrimSpace(*payload.BookingID) != "" {
		bookingID, err := uuid.Parse(strings.TrimSpace(*payload.BookingID))
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "booking_id must be a valid id", nil)
			return
		}
		in.BookingID = &bookingID
	}

	m, err := h.Svc.GateIn(r.Context(), in)
	if err != nil {
		if errors.Is(err, ErrAlreadyInYard) {
			common.JSONError(w, http.StatusConflict, "ALREADY_IN_YARD", "container already has an open movement", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to register gate-in", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": m})
}

// GateOut closes the open movement for a container.
func (h *Handler) GateOut(w http.ResponseWriter, r *http.Request) {
	var payload gateOutPayload
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
	dateOut, err := common.ParseDate(payload.DateOut)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "date_out must be formatted as "+common.DateLayout, nil)
		return
	}

	m, err := h.Svc.GateOut(r.Context(), payload.ContainerID, dateOut)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotInYard):
			common.JSONError(w, http.StatusConflict, "NOT_IN_YARD", "container has no open movement", nil)
		case errors.Is(err, ErrExitBeforeEntry):
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "date_out must not precede date_in", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to register gate-out", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": m})
}

// Get returns a single movement by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid movement id", nil)
		return
	}
	m, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "movement not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load movement", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": m})
}

// List returns movements matching the query filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 50)
	filter := ListFilter{Limit: perPage, Offset: common.Offset(page, perPage)}

	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("client_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid client_id", nil)
			return
		}
		filter.ClientID = &id
	}
	if q.Get("in_yard") == "true" {
		filter.InYardOnly = true
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		from, err := common.ParseDate(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid from date", nil)
			return
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		to, err := common.ParseDate(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid to date", nil)
			return
		}
		filter.To = &to
	}

	list, err := h.Store.List(r.Context(), filter)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list movements", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": list,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(list)},
	})
}
