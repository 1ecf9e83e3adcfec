package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-yard/internal/common"
	"github.com/noah-isme/backend-yard/internal/obs"
)

type stubStore struct {
	lastInsert *Entry
	called     bool
}

func (s *stubStore) Insert(_ context.Context, e *Entry) error {
	s.called = true
	s.lastInsert = e
	return nil
}

func (s *stubStore) List(context.Context, string, int, int) ([]Entry, error) {
	return nil, nil
}

func TestServiceRecord(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: true, SamplingRate: 1}
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "https://api.test/api/v1/billing/run?start=2024-03-01", nil)
	req.Header.Set("User-Agent", "tester")
	req.Header.Set("X-Request-ID", "req-123")
	req.RemoteAddr = "10.0.0.2:54321"
	ctx := common.WithUserID(req.Context(), userID.String())
	ctx = obs.WithRoutePattern(ctx, "/api/v1/billing/run")
	req = req.WithContext(ctx)

	if err := svc.Record(req.Context(), "", "", "", req, http.StatusOK, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !store.called {
		t.Fatal("expected store to be called")
	}
	entry := store.lastInsert
	if entry.ActorKind != ActorKindUser {
		t.Fatalf("unexpected actor kind: %s", entry.ActorKind)
	}
	if entry.ActorUserID == nil || *entry.ActorUserID != userID {
		t.Fatalf("unexpected stored user id: %v", entry.ActorUserID)
	}
	if entry.Action != "POST /api/v1/billing/run" {
		t.Fatalf("unexpected action: %s", entry.Action)
	}
	if entry.ResourceType != "billing.run" {
		t.Fatalf("unexpected resource type: %s", entry.ResourceType)
	}
	if entry.IP != "10.0.0.2" {
		t.Fatalf("expected ip capture, got %q", entry.IP)
	}
	if entry.RequestID != "req-123" {
		t.Fatalf("expected request id, got %q", entry.RequestID)
	}
	if len(entry.Metadata) == 0 {
		t.Fatal("expected metadata to be set")
	}
	var meta map[string]string
	if err := json.Unmarshal(entry.Metadata, &meta); err != nil {
		t.Fatalf("metadata json: %v", err)
	}
	if meta["query"] != "start=2024-03-01" {
		t.Fatalf("unexpected metadata query: %s", meta["query"])
	}
}

func TestServiceRecordAnonymous(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: true}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/occupancy", nil)
	if err := svc.Record(req.Context(), "", "", "", req, http.StatusOK, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if store.lastInsert.ActorKind != ActorKindAnonymous {
		t.Fatalf("unexpected actor kind: %s", store.lastInsert.ActorKind)
	}
	if store.lastInsert.ActorUserID != nil {
		t.Fatal("expected no user id for anonymous actor")
	}
}

func TestServiceRecordDisabled(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: false}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := svc.Record(req.Context(), "", "", "", req, http.StatusOK, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if store.called {
		t.Fatal("expected no insert when disabled")
	}
}

func TestServiceRecordExplicitMetadataWins(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: true}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/run?start=2024-03-01", nil)
	metadata := []byte(`{"record_count":42}`)
	if err := svc.Record(req.Context(), "billing.run", "billing", "", req, http.StatusOK, metadata); err != nil {
		t.Fatalf("record: %v", err)
	}
	if string(store.lastInsert.Metadata) != `{"record_count":42}` {
		t.Fatalf("unexpected metadata: %s", store.lastInsert.Metadata)
	}
	if store.lastInsert.Action != "billing.run" {
		t.Fatalf("unexpected action: %s", store.lastInsert.Action)
	}
}
