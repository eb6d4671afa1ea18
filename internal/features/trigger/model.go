package trigger

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RunKind string

const (
	KindDaily   RunKind = "daily"
	KindMeeting RunKind = "meeting"
)

type RunStatus string

const (
	StatusRunning         RunStatus = "running"
	StatusCompleted       RunStatus = "completed"
	StatusPartiallyFailed RunStatus = "partially_failed"
	StatusCancelled       RunStatus = "cancelled"
)

// RunError records one agent or evaluator that failed during a run.
type RunError struct {
	AgentID   string `json:"agent_id" bson:"agent_id"`
	Evaluator string `json:"evaluator,omitempty" bson:"evaluator,omitempty"`
	Message   string `json:"message" bson:"message"`
}

// TriggerRun is the log entry of one scheduler execution.
type TriggerRun struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RunID                string             `json:"run_id" bson:"run_id"`
	Kind                 RunKind            `json:"kind" bson:"kind"`
	Status               RunStatus          `json:"status" bson:"status"`
	StartedAt            time.Time          `json:"started_at" bson:"started_at"`
	FinishedAt           *time.Time         `json:"finished_at,omitempty" bson:"finished_at,omitempty"`
	AgentsTotal          int                `json:"agents_total" bson:"agents_total"`
	AgentsFailed         int                `json:"agents_failed" bson:"agents_failed"`
	NotificationsCreated int                `json:"notifications_created" bson:"notifications_created"`
	DuplicatesSkipped    int                `json:"duplicates_skipped" bson:"duplicates_skipped"`
	CandidatesRejected   int                `json:"candidates_rejected" bson:"candidates_rejected"`
	Errors               []RunError         `json:"errors,omitempty" bson:"errors,omitempty"`
}

// Failed lists the agents that had at least one error.
func (r *TriggerRun) Failed() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range r.Errors {
		if e.AgentID != "" && !seen[e.AgentID] {
			seen[e.AgentID] = true
			out = append(out, e.AgentID)
		}
	}
	return out
}
