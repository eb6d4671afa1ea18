// Package events carries domain events from the CRM's business code to the
// notification hooks. Publishing never waits for the hooks to run.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	ClientStageChanged = "client.stage_changed"
	MeetingScheduled   = "meeting.scheduled"
	InvitationUsed     = "invitation.used"
)

var Known = []string{ClientStageChanged, MeetingScheduled, InvitationUsed}

func IsKnown(name string) bool {
	for _, k := range Known {
		if k == name {
			return true
		}
	}
	return false
}

type Event struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type StageChangedData struct {
	AgentID     string `json:"agent_id"`
	ClientID    string `json:"client_id"`
	FromStageID string `json:"from_stage_id,omitempty"`
	ToStageID   string `json:"to_stage_id,omitempty"`
}

type MeetingScheduledData struct {
	AgentID   string `json:"agent_id"`
	MeetingID string `json:"meeting_id"`
}

type InvitationUsedData struct {
	InviterID   string `json:"inviter_id"`
	InviteeID   string `json:"invitee_id,omitempty"`
	InviteeName string `json:"invitee_name"`
}

func New(name string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		OccurredAt: time.Now(),
		Data:       raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", e.Name, err)
	}
	return nil
}
