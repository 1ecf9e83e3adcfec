package client

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

// Handler exposes client management endpoints.
type Handler struct {
	Store    Store
	Validate *validator.Validate
}

type clientPayload struct {
	Code         string `json:"code" validate:"required,min=2,max=32"`
	Name         string `json:"name" validate:"required,min=2,max=120"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	Active       *bool  `json:"active"`
}

// List returns clients ordered by code.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 50)
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := h.Store.List(r.Context(), search, perPage, common.Offset(page, perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list clients", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": list,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(list)},
	})
}

// Get returns a single client by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	c, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "client not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load client", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Create registers a new client.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.Store.Create(r.Context(), c); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "client code already in use", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create client", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// Update mutates an existing client.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	c, ok := h.decode(w, r)
	if !ok {
		return
	}
	c.ID = id
	if err := h.Store.Update(r.Context(), c); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "client not found", nil)
		case errors.Is(err, ErrDuplicateCode):
			common.JSONError(w, http.StatusConflict, "CONFLICT", "client code already in use", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update client", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Delete removes a client.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "client not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete client", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid client id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*Client, bool) {
	var payload clientPayload
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
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	return &Client{
		Code:         strings.ToUpper(strings.TrimSpace(payload.Code)),
		Name:         strings.TrimSpace(payload.Name),
		ContactEmail: strings.TrimSpace(payload.ContactEmail),
		Active:       active,
	}, true
}
