package audit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestHTTPRecorderMiddleware(t *testing.T) {
	store := &stubStore{}
	recorder := HTTPRecorder{Service: Service{Store: store, Enabled: true, SamplingRate: 1}}

	r := chi.NewRouter()
	r.With(recorder.Middleware(HTTPConfig{
		Action:          "gate.in",
		ResourceType:    "movements",
		ResourceIDParam: "id",
	})).Post("/movements/{id}/gate-in", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/movements/abc-123/gate-in", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !store.called {
		t.Fatal("expected an audit entry")
	}
	entry := store.lastInsert
	if entry.Action != "gate.in" {
		t.Fatalf("unexpected action: %s", entry.Action)
	}
	if entry.ResourceType != "movements" {
		t.Fatalf("unexpected resource type: %s", entry.ResourceType)
	}
	if entry.ResourceID != "abc-123" {
		t.Fatalf("unexpected resource id: %s", entry.ResourceID)
	}
	if entry.Status != http.StatusCreated {
		t.Fatalf("unexpected status: %d", entry.Status)
	}
}

func TestHTTPRecorderMiddlewareDisabled(t *testing.T) {
	store := &stubStore{}
	recorder := HTTPRecorder{Service: Service{Store: store, Enabled: false}}

	handler := recorder.Middleware(HTTPConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/clients/1", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if store.called {
		t.Fatal("expected no audit entry when disabled")
	}
}

func TestHTTPRecorderMiddlewareMetadata(t *testing.T) {
	store := &stubStore{}
	recorder := HTTPRecorder{Service: Service{Store: store, Enabled: true, SamplingRate: 1}}

	handler := recorder.Middleware(HTTPConfig{
		Action: "rates.update",
		MetadataFunc: func(_ *http.Request, status int) map[string]any {
			return map[string]any{"status": status}
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/rates/1", nil))

	if store.lastInsert == nil {
		t.Fatal("expected an audit entry")
	}
	var payload map[string]any
	if err := json.Unmarshal(store.lastInsert.Metadata, &payload); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if payload["status"] != float64(http.StatusOK) {
		t.Fatalf("unexpected metadata: %v", payload)
	}
}
