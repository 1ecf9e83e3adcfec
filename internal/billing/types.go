package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-yard/internal/common"
)

// Movement is a single container presence interval in the yard. DateOut is
// nil while the container is still inside.
type Movement struct {
	ID          uuid.UUID  `json:"id"`
	ContainerID string     `json:"container_id"`
	ClientID    uuid.UUID  `json:"client_id"`
	SizeClass   string     `json:"size_class"`
	DateIn      time.Time  `json:"date_in"`
	DateOut     *time.Time `json:"date_out,omitempty"`
}

// Window is an inclusive calendar-date billing period. Both bounds are UTC
// midnight timestamps.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow normalises both bounds to UTC calendar days and validates ordering.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: common.Day(start), End: common.Day(end)}
	if w.End.Before(w.Start) {
		return Window{}, ErrInvalidWindow
	}
	return w, nil
}

// Contains reports whether the calendar day of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	day := common.Day(t)
	return !day.Before(w.Start) && !day.After(w.End)
}

// Rate bundles the three tariff components applied to a movement.
type Rate struct {
	StoragePerDay    decimal.Decimal `json:"storage_per_day"`
	FreeDays         int             `json:"free_days"`
	HandlingPerEvent decimal.Decimal `json:"handling_per_event"`
}

// ZeroRate is the sentinel used when no tariff is configured for a
// client/size pair. It yields zero charges rather than an error.
func ZeroRate() Rate {
	return Rate{StoragePerDay: decimal.Zero, HandlingPerEvent: decimal.Zero}
}

// IsZero reports whether both rate components are zero.
func (r Rate) IsZero() bool {
	return r.StoragePerDay.IsZero() && r.HandlingPerEvent.IsZero()
}

// ChargeLine is the per-movement output of the computation. DateIn/DateOut
// are the original unclipped values for audit display.
type ChargeLine struct {
	MovementID     uuid.UUID       `json:"movement_id"`
	ContainerID    string          `json:"container_id"`
	ClientID       uuid.UUID       `json:"client_id"`
	SizeClass      string          `json:"size_class"`
	DateIn         time.Time       `json:"date_in"`
	DateOut        *time.Time      `json:"date_out,omitempty"`
	StorageDays    int             `json:"storage_days"`
	BillableDays   int             `json:"billable_days"`
	StorageCharge  decimal.Decimal `json:"storage_charge"`
	HandlingCount  int             `json:"handling_count"`
	HandlingCharge decimal.Decimal `json:"handling_charge"`
	Total          decimal.Decimal `json:"total"`
}

// Summary aggregates the rounded per-line charges.
type Summary struct {
	TotalStorageCharge  decimal.Decimal `json:"total_storage_charge"`
	TotalHandlingCharge decimal.Decimal `json:"total_handling_charge"`
	TotalCharge         decimal.Decimal `json:"total_charge"`
	RecordCount         int             `json:"record_count"`
}

// Diagnostic codes surfaced alongside a billing report.
const (
	DiagMalformedInterval  = "malformed_interval"
	DiagRatesNotConfigured = "rates_not_configured"
)

// Diagnostic flags a data quality issue observed during a run. Diagnostics
// never change charge totals.
type Diagnostic struct {
	Code        string    `json:"code"`
	ContainerID string    `json:"container_id,omitempty"`
	ClientID    uuid.UUID `json:"client_id,omitempty"`
	SizeClass   string    `json:"size_class,omitempty"`
	Detail      string    `json:"detail"`
}

// Report is the full result of one billing run.
type Report struct {
	Window       Window       `json:"window"`
	ClientFilter *uuid.UUID   `json:"client_filter,omitempty"`
	Lines        []ChargeLine `json:"lines"`
	Summary      Summary      `json:"summary"`
	Diagnostics  []Diagnostic `json:"diagnostics,omitempty"`
}
