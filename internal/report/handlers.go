package report

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-yard/internal/common"
)

// Handler exposes the reporting endpoints.
type Handler struct {
	Source Source
}

// Occupancy returns the current in-yard count per size class.
func (h *Handler) Occupancy(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Source.Occupancy(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute occupancy", nil)
		return
	}
	if rows == nil {
		rows = []OccupancyRow{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// GateActivity returns per-day entry and exit counts for a date range.
func (h *Handler) GateActivity(w http.ResponseWriter, r *http.Request) {
	from, err := common.ParseDate(strings.TrimSpace(r.URL.Query().Get("from")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must be formatted as "+common.DateLayout, nil)
		return
	}
	to, err := common.ParseDate(strings.TrimSpace(r.URL.Query().Get("to")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "to must be formatted as "+common.DateLayout, nil)
		return
	}
	if to.Before(from) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "to must not precede from", nil)
		return
	}

	rows, err := h.Source.GateActivity(r.Context(), from, to)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute gate activity", nil)
		return
	}
	if rows == nil {
		rows = []ActivityRow{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
