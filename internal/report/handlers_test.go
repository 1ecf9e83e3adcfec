package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubSource struct {
	occupancy []OccupancyRow
	activity  []ActivityRow
	from, to  time.Time
}

func (s *stubSource) Occupancy(context.Context) ([]OccupancyRow, error) {
	return s.occupancy, nil
}

func (s *stubSource) GateActivity(_ context.Context, from, to time.Time) ([]ActivityRow, error) {
	s.from, s.to = from, to
	return s.activity, nil
}

func TestOccupancy(t *testing.T) {
	src := &stubSource{occupancy: []OccupancyRow{
		{SizeClass: "20GP", Count: 12},
		{SizeClass: "40HC", Count: 7},
	}}
	h := &Handler{Source: src}

	req := httptest.NewRequest(http.MethodGet, "/reports/occupancy", nil)
	rec := httptest.NewRecorder()
	h.Occupancy(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []OccupancyRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	require.Equal(t, int64(12), envelope.Data[0].Count)
}

func TestOccupancyEmptyYard(t *testing.T) {
	h := &Handler{Source: &stubSource{}}

	req := httptest.NewRequest(http.MethodGet, "/reports/occupancy", nil)
	rec := httptest.NewRecorder()
	h.Occupancy(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestGateActivityParsesRange(t *testing.T) {
	src := &stubSource{activity: []ActivityRow{{Date: "2024-03-05", GateIns: 3, GateOuts: 1}}}
	h := &Handler{Source: src}

	req := httptest.NewRequest(http.MethodGet, "/reports/gate-activity?from=2024-03-01&to=2024-03-31", nil)
	rec := httptest.NewRecorder()
	h.GateActivity(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2024-03-01", src.from.Format("2006-01-02"))
	require.Equal(t, "2024-03-31", src.to.Format("2006-01-02"))
}

func TestGateActivityRejectsReversedRange(t *testing.T) {
	h := &Handler{Source: &stubSource{}}

	req := httptest.NewRequest(http.MethodGet, "/reports/gate-activity?from=2024-03-31&to=2024-03-01", nil)
	rec := httptest.NewRecorder()
	h.GateActivity(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateActivityRejectsMissingDates(t *testing.T) {
	h := &Handler{Source: &stubSource{}}

	req := httptest.NewRequest(http.MethodGet, "/reports/gate-activity", nil)
	rec := httptest.NewRecorder()
	h.GateActivity(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
