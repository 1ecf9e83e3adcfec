package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubAudit struct {
	action   string
	metadata []byte
	called   bool
}

func (s *stubAudit) Record(_ context.Context, action, _, _ string, _ *http.Request, _ int, metadata []byte) error {
	s.called = true
	s.action = action
	s.metadata = metadata
	return nil
}

func newTestHandler(t *testing.T) (*Handler, uuid.UUID, *stubAudit) {
	t.Helper()
	clientID := uuid.New()
	out := date(2024, time.January, 10)
	movements := &stubMovements{movements: []Movement{
		{ID: uuid.New(), ContainerID: "MSCU1000001", ClientID: clientID, SizeClass: "20", DateIn: date(2024, time.January, 5), DateOut: &out},
	}}
	rates := &stubRates{rates: map[string]Rate{
		clientID.String() + "/20": {StoragePerDay: decimal.RequireFromString("2.00"), HandlingPerEvent: decimal.RequireFromString("10.00")},
	}}
	audit := &stubAudit{}
	return &Handler{Svc: &Service{Movements: movements, Rates: rates}, Audit: audit}, clientID, audit
}

func TestHandlerRun(t *testing.T) {
	handler, clientID, audit := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/run?start=2024-01-01&end=2024-01-31&client_id="+clientID.String(), nil)
	rec := httptest.NewRecorder()
	handler.Run(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data Report `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Summary.RecordCount != 1 {
		t.Fatalf("expected one record, got %d", body.Data.Summary.RecordCount)
	}
	if !audit.called {
		t.Fatal("expected audit entry to be recorded")
	}
	if audit.action != "billing.run" {
		t.Fatalf("unexpected audit action %q", audit.action)
	}
	var meta map[string]any
	if err := json.Unmarshal(audit.metadata, &meta); err != nil {
		t.Fatalf("decode audit metadata: %v", err)
	}
	if meta["start"] != "2024-01-01" || meta["end"] != "2024-01-31" {
		t.Fatalf("unexpected audit window: %+v", meta)
	}
	if meta["record_count"] != float64(1) {
		t.Fatalf("expected record_count in audit metadata, got %+v", meta)
	}
}

func TestHandlerRunRejectsReversedWindow(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/run?start=2024-02-01&end=2024-01-01", nil)
	rec := httptest.NewRecorder()
	handler.Run(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVALID_WINDOW") {
		t.Fatalf("expected INVALID_WINDOW code, got %s", rec.Body.String())
	}
}

func TestHandlerRunRejectsBadDate(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/run?start=01-01-2024&end=2024-01-31", nil)
	rec := httptest.NewRecorder()
	handler.Run(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerExportWritesCSV(t *testing.T) {
	handler, clientID, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/run/export?start=2024-01-01&end=2024-01-31&client_id="+clientID.String(), nil)
	rec := httptest.NewRecorder()
	handler.Export(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected csv content type, got %s", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, one line, and totals row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "container_id,") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[2], "TOTAL,") {
		t.Fatalf("expected totals row, got %s", lines[2])
	}
}

type stubEnqueuer struct {
	clientID uuid.UUID
	window   Window
	called   bool
}

func (s *stubEnqueuer) EnqueueStatement(_ context.Context, clientID uuid.UUID, w Window) (string, error) {
	s.called = true
	s.clientID = clientID
	s.window = w
	return "task-1", nil
}

func TestHandlerEnqueueStatement(t *testing.T) {
	handler, clientID, _ := newTestHandler(t)
	enq := &stubEnqueuer{}
	handler.Statements = enq

	payload := `{"client_id":"` + clientID.String() + `","start":"2024-01-01","end":"2024-01-31"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/statements", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.EnqueueStatement(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if !enq.called || enq.clientID != clientID {
		t.Fatalf("expected enqueue with client id, got %+v", enq)
	}
	if !enq.window.Start.Equal(date(2024, time.January, 1)) {
		t.Fatalf("unexpected window start: %s", enq.window.Start)
	}
}
