package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-yard/internal/billing"
)

// Enqueuer schedules statement generation tasks on the asynq queue.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
}

// EnqueueStatement submits a statement task and returns its id.
func (e Enqueuer) EnqueueStatement(ctx context.Context, clientID uuid.UUID, w billing.Window) (string, error) {
	task, err := NewStatementTask(clientID, w)
	if err != nil {
		return "", err
	}
	opts := []asynq.Option{asynq.MaxRetry(3)}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	info, err := e.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}
