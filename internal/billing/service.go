package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-yard/internal/obs"
)

// MovementSource supplies the movement records whose presence interval
// overlaps a billing window.
type MovementSource interface {
	ListOverlapping(ctx context.Context, w Window, clientID *uuid.UUID, limit int) ([]Movement, error)
}

// RateSource resolves the tariff for a client/size pair. The boolean reports
// whether any tariff (client-specific or default) was configured; resolvers
// must be idempotent so results can be cached within one run.
type RateSource interface {
	Resolve(ctx context.Context, clientID uuid.UUID, sizeClass string) (Rate, bool, error)
}

// Service runs the storage/handling billing computation: select overlapping
// movements, clip each interval to the window, convert to charges, aggregate.
type Service struct {
	Movements  MovementSource
	Rates      RateSource
	MaxRecords int
}

type rateKey struct {
	clientID  uuid.UUID
	sizeClass string
}

type rateEntry struct {
	rate  Rate
	found bool
}

// Run executes one billing computation. The result is deterministic for
// identical inputs; movements are processed in the source's order and the
// only external calls are the initial fetch and rate lookups.
func (s *Service) Run(ctx context.Context, w Window, clientFilter *uuid.UUID) (Report, error) {
	start := time.Now()
	report, err := s.run(ctx, w, clientFilter)
	if obs.BillingRunTotal != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		obs.BillingRunTotal.WithLabelValues(result).Inc()
		obs.BillingRunDuration.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
	return report, err
}

func (s *Service) run(ctx context.Context, w Window, clientFilter *uuid.UUID) (Report, error) {
	if w.End.Before(w.Start) {
		return Report{}, ErrInvalidWindow
	}
	limit := s.MaxRecords
	if limit <= 0 {
		limit = 2000
	}

	movements, err := s.Movements.ListOverlapping(ctx, w, clientFilter, limit)
	if err != nil {
		return Report{}, fmt.Errorf("billing: select movements: %w", err)
	}

	report := Report{
		Window:       w,
		ClientFilter: clientFilter,
		Lines:        make([]ChargeLine, 0, len(movements)),
	}

	cache := make(map[rateKey]rateEntry)
	missingSeen := make(map[rateKey]bool)

	for _, m := range movements {
		key := rateKey{clientID: m.ClientID, sizeClass: m.SizeClass}
		entry, ok := cache[key]
		if !ok {
			rate, found, err := s.Rates.Resolve(ctx, m.ClientID, m.SizeClass)
			if err != nil {
				return Report{}, fmt.Errorf("billing: resolve rates: %w", err)
			}
			entry = rateEntry{rate: rate, found: found}
			cache[key] = entry
		}
		if !entry.found && !missingSeen[key] {
			missingSeen[key] = true
			report.Diagnostics = append(report.Diagnostics, Diagnostic{
				Code:      DiagRatesNotConfigured,
				ClientID:  m.ClientID,
				SizeClass: m.SizeClass,
				Detail:    fmt.Sprintf("no storage or handling tariff configured for size %s", m.SizeClass),
			})
			countDiagnostic(DiagRatesNotConfigured)
		}

		if m.DateOut != nil && m.DateOut.Before(m.DateIn) {
			report.Diagnostics = append(report.Diagnostics, Diagnostic{
				Code:        DiagMalformedInterval,
				ContainerID: m.ContainerID,
				ClientID:    m.ClientID,
				SizeClass:   m.SizeClass,
				Detail:      "date_out precedes date_in; storage days clamped to zero",
			})
			countDiagnostic(DiagMalformedInterval)
		}

		report.Lines = append(report.Lines, ComputeLine(m, w, entry.rate))
	}

	report.Summary = Summarize(report.Lines)
	return report, nil
}

func countDiagnostic(code string) {
	if obs.BillingDiagnosticsTotal != nil {
		obs.BillingDiagnosticsTotal.WithLabelValues(code).Inc()
	}
}
