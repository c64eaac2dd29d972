package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Forecast maintenance tasks
	TypeForecastRefresh = "forecast:refresh"
	TypeForecastPrune   = "forecast:prune"

	// Auth maintenance tasks
	TypeSessionPurge = "session:purge"
)

// ForecastPayload identifies the plan a forecast task operates on
type ForecastPayload struct {
	PlanID string `json:"plan_id,omitempty"`
}

// NewForecastRefreshTask creates a task that recomputes the latest
// forecast for a plan
func NewForecastRefreshTask(planID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ForecastPayload{PlanID: planID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeForecastRefresh, payload), nil
}

// NewForecastPruneTask creates a task that prunes old forecast
// snapshots beyond the per-plan cap
func NewForecastPruneTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeForecastPrune, nil), nil
}

// NewSessionPurgeTask creates a task that removes expired sessions and
// login codes
func NewSessionPurgeTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeSessionPurge, nil), nil
}

// ParseForecastPayload parses a forecast task payload
func ParseForecastPayload(task *asynq.Task) (ForecastPayload, error) {
	var payload ForecastPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
