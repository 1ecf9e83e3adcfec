package rates

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-yard/internal/billing"
)

// Service resolves tariffs with the client-specific → default → zero fallback
// chain and caches resolved entries.
type Service struct {
	Store Store
	Cache *Cache
}

type cachedResolution struct {
	Storage  string `json:"storage"`
	FreeDays int    `json:"free_days"`
	Handling string `json:"handling"`
	Found    bool   `json:"found"`
}

// Resolve implements billing.RateSource. A missing tariff on both lookup
// levels degrades to the zero-rate sentinel instead of failing. Cached
// entries are TTL-bounded, so a default-tariff change becomes visible to
// every client within one cache TTL.
func (s *Service) Resolve(ctx context.Context, clientID uuid.UUID, sizeClass string) (billing.Rate, bool, error) {
	key := cacheKey(clientID, sizeClass)
	var cached cachedResolution
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		rate, err := cached.rate()
		if err == nil {
			return rate, cached.Found, nil
		}
	}

	schedule, err := s.Store.Find(ctx, &clientID, sizeClass)
	if err != nil {
		return billing.Rate{}, false, fmt.Errorf("rates: find client tariff: %w", err)
	}
	if schedule == nil {
		schedule, err = s.Store.Find(ctx, nil, sizeClass)
		if err != nil {
			return billing.Rate{}, false, fmt.Errorf("rates: find default tariff: %w", err)
		}
	}

	if schedule == nil {
		_ = s.Cache.SetJSON(ctx, key, cachedResolution{Storage: "0", Handling: "0"})
		return billing.ZeroRate(), false, nil
	}

	rate := billing.Rate{
		StoragePerDay:    schedule.StoragePerDay,
		FreeDays:         schedule.FreeDays,
		HandlingPerEvent: schedule.HandlingPerEvent,
	}
	_ = s.Cache.SetJSON(ctx, key, cachedResolution{
		Storage:  rate.StoragePerDay.String(),
		FreeDays: rate.FreeDays,
		Handling: rate.HandlingPerEvent.String(),
		Found:    true,
	})
	return rate, true, nil
}

// InvalidateFor drops the cached resolution for a specific tariff row. A
// default-tariff change is left to TTL expiry since it affects every client.
func (s *Service) InvalidateFor(ctx context.Context, clientID *uuid.UUID, sizeClass string) {
	if clientID == nil {
		return
	}
	_ = s.Cache.Invalidate(ctx, cacheKey(*clientID, sizeClass))
}

func (c cachedResolution) rate() (billing.Rate, error) {
	storage, err := parseDecimal(c.Storage)
	if err != nil {
		return billing.Rate{}, err
	}
	handling, err := parseDecimal(c.Handling)
	if err != nil {
		return billing.Rate{}, err
	}
	return billing.Rate{StoragePerDay: storage, FreeDays: c.FreeDays, HandlingPerEvent: handling}, nil
}

func cacheKey(clientID uuid.UUID, sizeClass string) string {
	return "rates:v1:" + clientID.String() + ":" + sizeClass
}
