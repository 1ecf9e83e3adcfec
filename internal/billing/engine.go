package billing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-yard/internal/common"
)

// ErrInvalidWindow is returned when the end date precedes the start date.
var ErrInvalidWindow = errors.New("billing: end date before start date")

const hoursPerDay = 24

// Clip truncates the movement's presence interval to the billing window.
// A missing date_out means the container is still in the yard, so the
// effective exit is the window end, never the wall clock.
func Clip(m Movement, w Window) (effectiveIn, effectiveOut time.Time) {
	effectiveIn = common.Day(m.DateIn)
	if effectiveIn.Before(w.Start) {
		effectiveIn = w.Start
	}
	effectiveOut = w.End
	if m.DateOut != nil {
		if out := common.Day(*m.DateOut); out.Before(w.End) {
			effectiveOut = out
		}
	}
	return effectiveIn, effectiveOut
}

// StorageDays counts calendar days between two UTC midnights inclusively:
// in == out counts as one day. A reversed interval yields 0.
func StorageDays(effectiveIn, effectiveOut time.Time) int {
	if effectiveIn.After(effectiveOut) {
		return 0
	}
	return int(effectiveOut.Sub(effectiveIn).Hours()/hoursPerDay) + 1
}

// HandlingCount counts gate events landing inside the window: the entry
// and, when present, the exit. A container that was already inside and
// stays inside produces no handling events.
func HandlingCount(m Movement, w Window) int {
	count := 0
	if w.Contains(m.DateIn) {
		count++
	}
	if m.DateOut != nil && w.Contains(*m.DateOut) {
		count++
	}
	return count
}

// ComputeLine converts one movement into a charge line. Monetary rounding
// happens on the computed products, never on the rates themselves.
func ComputeLine(m Movement, w Window, rate Rate) ChargeLine {
	effectiveIn, effectiveOut := Clip(m, w)
	storageDays := StorageDays(effectiveIn, effectiveOut)

	billableDays := storageDays - rate.FreeDays
	if billableDays < 0 {
		billableDays = 0
	}
	storageCharge := decimal.NewFromInt(int64(billableDays)).Mul(rate.StoragePerDay).Round(2)

	handlingCount := HandlingCount(m, w)
	handlingCharge := decimal.NewFromInt(int64(handlingCount)).Mul(rate.HandlingPerEvent).Round(2)

	return ChargeLine{
		MovementID:     m.ID,
		ContainerID:    m.ContainerID,
		ClientID:       m.ClientID,
		SizeClass:      m.SizeClass,
		DateIn:         m.DateIn,
		DateOut:        m.DateOut,
		StorageDays:    storageDays,
		BillableDays:   billableDays,
		StorageCharge:  storageCharge,
		HandlingCount:  handlingCount,
		HandlingCharge: handlingCharge,
		Total:          storageCharge.Add(handlingCharge),
	}
}

// Summarize re-aggregates charge lines into a summary from the rounded
// per-line values.
func Summarize(lines []ChargeLine) Summary {
	s := Summary{
		TotalStorageCharge:  decimal.Zero,
		TotalHandlingCharge: decimal.Zero,
		TotalCharge:         decimal.Zero,
	}
	for _, line := range lines {
		s.TotalStorageCharge = s.TotalStorageCharge.Add(line.StorageCharge)
		s.TotalHandlingCharge = s.TotalHandlingCharge.Add(line.HandlingCharge)
		s.TotalCharge = s.TotalCharge.Add(line.Total)
	}
	s.RecordCount = len(lines)
	return s
}
