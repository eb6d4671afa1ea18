package business

import (
	"context"
	"time"
)

// Store is the read-only view of CRM data owned by other subsystems.
// Lookups return nil, nil when the row does not exist.
type Store interface {
	ListActiveAgents(ctx context.Context) ([]Agent, error)
	GetAgent(ctx context.Context, id string) (*Agent, error)
	ListClients(ctx context.Context, agentID string) ([]Client, error)
	GetClient(ctx context.Context, agentID, clientID string) (*Client, error)
	ListStages(ctx context.Context, agentID string) ([]PipelineStage, error)
	GetStage(ctx context.Context, agentID, stageID string) (*PipelineStage, error)
	// ListMeetings returns meetings with scheduled_at in [from, to).
	ListMeetings(ctx context.Context, agentID string, from, to time.Time) ([]Meeting, error)
	GetMeeting(ctx context.Context, agentID, meetingID string) (*Meeting, error)
}
