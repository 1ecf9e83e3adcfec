package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-yard/internal/common"
)

// AuditRecorder persists a trail entry describing who ran a computation and
// with which parameters.
type AuditRecorder interface {
	Record(ctx context.Context, action, resourceType, resourceID string, req *http.Request, status int, metadata []byte) error
}

// StatementEnqueuer schedules asynchronous statement generation.
type StatementEnqueuer interface {
	EnqueueStatement(ctx context.Context, clientID uuid.UUID, w Window) (string, error)
}

// Handler exposes the billing computation over HTTP.
type Handler struct {
	Svc        *Service
	Audit      AuditRecorder
	Statements StatementEnqueuer
}

// Run computes charges for the requested window and renders the full report.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	window, clientFilter, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	report, err := h.Svc.Run(r.Context(), window, clientFilter)
	if err != nil {
		h.renderRunError(w, err)
		return
	}

	h.recordAudit(r, "billing.run", report)
	common.JSON(w, http.StatusOK, map[string]any{"data": report})
}

// Export renders the same report as a CSV statement download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	window, clientFilter, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	report, err := h.Svc.Run(r.Context(), window, clientFilter)
	if err != nil {
		h.renderRunError(w, err)
		return
	}

	h.recordAudit(r, "billing.export", report)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="storage-charges.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, report); err != nil {
		// Headers are already sent; nothing left to do but log upstream.
		return
	}
}

type statementRequest struct {
	ClientID string `json:"client_id" validate:"required,uuid"`
	Start    string `json:"start" validate:"required"`
	End      string `json:"end" validate:"required"`
}

// EnqueueStatement schedules background generation of a persisted statement.
func (h *Handler) EnqueueStatement(w http.ResponseWriter, r *http.Request) {
	if h.Statements == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "statement jobs not configured", nil)
		return
	}
	var payload statementRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	clientID, err := uuid.Parse(strings.TrimSpace(payload.ClientID))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "client_id must be a valid id", nil)
		return
	}
	window, err := ParseWindow(payload.Start, payload.End)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_WINDOW", err.Error(), nil)
		return
	}
	taskID, err := h.Statements.EnqueueStatement(r.Context(), clientID, window)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to enqueue statement", nil)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": map[string]string{"task_id": taskID}})
}

func (h *Handler) parseQuery(w http.ResponseWriter, r *http.Request) (Window, *uuid.UUID, bool) {
	q := r.URL.Query()
	window, err := ParseWindow(q.Get("start"), q.Get("end"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_WINDOW", err.Error(), nil)
		return Window{}, nil, false
	}

	var clientFilter *uuid.UUID
	if raw := strings.TrimSpace(q.Get("client_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "client_id must be a valid id", nil)
			return Window{}, nil, false
		}
		clientFilter = &id
	}
	return window, clientFilter, true
}

// ParseWindow builds a validated window from two YYYY-MM-DD dates.
func ParseWindow(start, end string) (Window, error) {
	from, err := common.ParseDate(start)
	if err != nil {
		return Window{}, errors.New("start must be a YYYY-MM-DD date")
	}
	to, err := common.ParseDate(end)
	if err != nil {
		return Window{}, errors.New("end must be a YYYY-MM-DD date")
	}
	window, err := NewWindow(from, to)
	if err != nil {
		return Window{}, errors.New("end date must not precede start date")
	}
	return window, nil
}

func (h *Handler) renderRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidWindow) {
		common.JSONError(w, http.StatusBadRequest, "INVALID_WINDOW", "end date must not precede start date", nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing computation failed", nil)
}

func (h *Handler) recordAudit(r *http.Request, action string, report Report) {
	if h.Audit == nil {
		return
	}
	meta := map[string]any{
		"start":        report.Window.Start.Format(common.DateLayout),
		"end":          report.Window.End.Format(common.DateLayout),
		"record_count": report.Summary.RecordCount,
	}
	if report.ClientFilter != nil {
		meta["client_id"] = report.ClientFilter.String()
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return
	}
	_ = h.Audit.Record(r.Context(), action, "billing", "", r, http.StatusOK, encoded)
}
