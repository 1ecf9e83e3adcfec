package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-yard/internal/billing"
	"github.com/noah-isme/backend-yard/internal/obs"
)

// StatementWorker consumes statement tasks: it runs the billing computation
// for the requested client and period and persists the resulting summary.
type StatementWorker struct {
	Billing    *billing.Service
	Statements StatementStore
	Log        zerolog.Logger
}

// HandleStatement processes one statement task.
func (w *StatementWorker) HandleStatement(ctx context.Context, task *asynq.Task) error {
	var payload StatementPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		w.countJob("error")
		return fmt.Errorf("statement payload: %v: %w", err, asynq.SkipRetry)
	}

	window, err := billing.ParseWindow(payload.Start, payload.End)
	if err != nil {
		w.countJob("error")
		return fmt.Errorf("statement window: %v: %w", err, asynq.SkipRetry)
	}

	report, err := w.Billing.Run(ctx, window, &payload.ClientID)
	if err != nil {
		w.countJob("error")
		return fmt.Errorf("statement billing run: %w", err)
	}

	statement := &Statement{
		ClientID:            payload.ClientID,
		PeriodStart:         window.Start,
		PeriodEnd:           window.End,
		TotalStorageCharge:  report.Summary.TotalStorageCharge,
		TotalHandlingCharge: report.Summary.TotalHandlingCharge,
		TotalCharge:         report.Summary.TotalCharge,
		RecordCount:         report.Summary.RecordCount,
	}
	if len(report.Diagnostics) > 0 {
		encoded, err := json.Marshal(report.Diagnostics)
		if err == nil {
			statement.Diagnostics = encoded
		}
	}

	if err := w.Statements.Insert(ctx, statement); err != nil {
		w.countJob("error")
		return fmt.Errorf("statement insert: %w", err)
	}

	w.countJob("ok")
	w.Log.Info().
		Str("client_id", payload.ClientID.String()).
		Str("period_start", payload.Start).
		Str("period_end", payload.End).
		Str("total", report.Summary.TotalCharge.StringFixed(2)).
		Int("record_count", report.Summary.RecordCount).
		Msg("statement generated")
	return nil
}

func (w *StatementWorker) countJob(result string) {
	if obs.StatementJobsTotal != nil {
		obs.StatementJobsTotal.WithLabelValues(result).Inc()
	}
}
