package billing

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubMovements struct {
	movements []Movement
	err       error
	calls     int
	lastLimit int
}

func (s *stubMovements) ListOverlapping(_ context.Context, _ Window, _ *uuid.UUID, limit int) ([]Movement, error) {
	s.calls++
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.movements, nil
}

type stubRates struct {
	rates   map[string]Rate
	lookups int
}

func (s *stubRates) Resolve(_ context.Context, clientID uuid.UUID, sizeClass string) (Rate, bool, error) {
	s.lookups++
	rate, ok := s.rates[clientID.String()+"/"+sizeClass]
	if !ok {
		return ZeroRate(), false, nil
	}
	return rate, true, nil
}

func TestServiceRunComputesChargesAndSummary(t *testing.T) {
	clientID := uuid.New()
	out := date(2024, time.January, 10)
	movements := &stubMovements{movements: []Movement{
		{ID: uuid.New(), ContainerID: "MSCU1000001", ClientID: clientID, SizeClass: "20", DateIn: date(2024, time.January, 5), DateOut: &out},
		{ID: uuid.New(), ContainerID: "MSCU1000002", ClientID: clientID, SizeClass: "20", DateIn: date(2024, time.January, 20)},
	}}
	rates := &stubRates{rates: map[string]Rate{
		clientID.String() + "/20": {
			StoragePerDay:    decimal.RequireFromString("3.00"),
			FreeDays:         2,
			HandlingPerEvent: decimal.RequireFromString("15.00"),
		},
	}}
	svc := &Service{Movements: movements, Rates: rates, MaxRecords: 100}

	w := window(t, date(2024, time.January, 1), date(2024, time.January, 31))
	report, err := svc.Run(context.Background(), w, &clientID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Lines) != 2 {
		t.Fatalf("expected 2 charge lines, got %d", len(report.Lines))
	}

	// First movement: 6 storage days, 4 billable, two gate events.
	first := report.Lines[0]
	if first.StorageDays != 6 || first.BillableDays != 4 {
		t.Fatalf("unexpected day counts: %+v", first)
	}
	if first.StorageCharge.StringFixed(2) != "12.00" {
		t.Fatalf("expected storage charge 12.00, got %s", first.StorageCharge)
	}
	if first.HandlingCount != 2 || first.HandlingCharge.StringFixed(2) != "30.00" {
		t.Fatalf("unexpected handling: %+v", first)
	}

	// Second movement: Jan 20 through Jan 31 still in yard, one gate event.
	second := report.Lines[1]
	if second.StorageDays != 12 || second.HandlingCount != 1 {
		t.Fatalf("unexpected second line: %+v", second)
	}

	if report.Summary.RecordCount != 2 {
		t.Fatalf("expected record count 2, got %d", report.Summary.RecordCount)
	}
	expected := first.Total.Add(second.Total)
	if !report.Summary.TotalCharge.Equal(expected) {
		t.Fatalf("summary total %s != %s", report.Summary.TotalCharge, expected)
	}
	if len(report.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", report.Diagnostics)
	}
}

func TestServiceRunCachesRateLookups(t *testing.T) {
	clientID := uuid.New()
	var movements []Movement
	for i := 0; i < 5; i++ {
		movements = append(movements, Movement{ID: uuid.New(), ContainerID: "CONT", ClientID: clientID, SizeClass: "40", DateIn: date(2024, time.January, 2)})
	}
	rates := &stubRates{rates: map[string]Rate{
		clientID.String() + "/40": {StoragePerDay: decimal.New(1, 0), HandlingPerEvent: decimal.Zero},
	}}
	svc := &Service{Movements: &stubMovements{movements: movements}, Rates: rates}

	w := window(t, date(2024, time.January, 1), date(2024, time.January, 31))
	if _, err := svc.Run(context.Background(), w, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if rates.lookups != 1 {
		t.Fatalf("expected a single rate lookup for repeated client/size, got %d", rates.lookups)
	}
}

func TestServiceRunEmitsDiagnostics(t *testing.T) {
	clientID := uuid.New()
	badOut := date(2024, time.January, 2)
	movements := &stubMovements{movements: []Movement{
		{ID: uuid.New(), ContainerID: "BAD0000001", ClientID: clientID, SizeClass: "20", DateIn: date(2024, time.January, 10), DateOut: &badOut},
	}}
	svc := &Service{Movements: movements, Rates: &stubRates{}}

	w := window(t, date(2024, time.January, 1), date(2024, time.January, 31))
	report, err := svc.Run(context.Background(), w, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Lines[0].StorageDays != 0 {
		t.Fatalf("expected clamped storage days, got %d", report.Lines[0].StorageDays)
	}
	if !report.Summary.TotalCharge.IsZero() {
		t.Fatalf("expected zero total, got %s", report.Summary.TotalCharge)
	}

	codes := map[string]bool{}
	for _, diag := range report.Diagnostics {
		codes[diag.Code] = true
	}
	if !codes[DiagMalformedInterval] {
		t.Fatalf("expected malformed interval diagnostic, got %+v", report.Diagnostics)
	}
	if !codes[DiagRatesNotConfigured] {
		t.Fatalf("expected rates-not-configured diagnostic, got %+v", report.Diagnostics)
	}
}

func TestServiceRunDeterministic(t *testing.T) {
	clientID := uuid.New()
	out := date(2024, time.January, 15)
	movements := &stubMovements{movements: []Movement{
		{ID: uuid.New(), ContainerID: "MSCU2000001", ClientID: clientID, SizeClass: "40", DateIn: date(2023, time.December, 1)},
		{ID: uuid.New(), ContainerID: "MSCU2000002", ClientID: clientID, SizeClass: "40", DateIn: date(2024, time.January, 3), DateOut: &out},
	}}
	rates := &stubRates{rates: map[string]Rate{
		clientID.String() + "/40": {StoragePerDay: decimal.RequireFromString("4.75"), FreeDays: 1, HandlingPerEvent: decimal.RequireFromString("20.00")},
	}}
	svc := &Service{Movements: movements, Rates: rates}

	w := window(t, date(2024, time.January, 1), date(2024, time.January, 31))
	first, err := svc.Run(context.Background(), w, nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.Run(context.Background(), w, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical reports for identical inputs")
	}
}

func TestServiceRunPropagatesStorageFailure(t *testing.T) {
	svc := &Service{Movements: &stubMovements{err: errors.New("db down")}, Rates: &stubRates{}}
	w := window(t, date(2024, time.January, 1), date(2024, time.January, 31))
	if _, err := svc.Run(context.Background(), w, nil); err == nil {
		t.Fatal("expected storage failure to propagate")
	}
}

func TestServiceRunAppliesRecordCap(t *testing.T) {
	movements := &stubMovements{}
	svc := &Service{Movements: movements, Rates: &stubRates{}}
	w := window(t, date(2024, time.January, 1), date(2024, time.January, 31))
	if _, err := svc.Run(context.Background(), w, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if movements.lastLimit != 2000 {
		t.Fatalf("expected default record cap 2000, got %d", movements.lastLimit)
	}
}
