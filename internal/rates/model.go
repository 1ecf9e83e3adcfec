package rates

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Schedule is one tariff row: client-specific when ClientID is set, the
// size-class default otherwise.
type Schedule struct {
	ID               uuid.UUID       `json:"id"`
	ClientID         *uuid.UUID      `json:"client_id,omitempty"`
	SizeClass        string          `json:"size_class"`
	StoragePerDay    decimal.Decimal `json:"storage_per_day"`
	FreeDays         int             `json:"free_days"`
	HandlingPerEvent decimal.Decimal `json:"handling_per_event"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
