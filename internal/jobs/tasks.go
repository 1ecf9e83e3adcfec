package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-yard/internal/billing"
	"github.com/noah-isme/backend-yard/internal/common"
)

// TypeStatement is the asynq task type for background statement generation.
const TypeStatement = "billing:statement"

// StatementPayload carries the parameters of a statement generation task.
type StatementPayload struct {
	ClientID uuid.UUID `json:"client_id"`
	Start    string    `json:"start"`
	End      string    `json:"end"`
}

// NewStatementTask builds the asynq task for a client and billing window.
func NewStatementTask(clientID uuid.UUID, w billing.Window) (*asynq.Task, error) {
	payload, err := json.Marshal(StatementPayload{
		ClientID: clientID,
		Start:    w.Start.Format(common.DateLayout),
		End:      w.End.Format(common.DateLayout),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeStatement, payload), nil
}
