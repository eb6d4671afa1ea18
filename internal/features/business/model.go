package business

import (
	"strings"
	"time"
)

type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingCompleted MeetingStatus = "completed"
	MeetingCancelled MeetingStatus = "cancelled"
)

// Agent is the insurance salesperson who receives notifications.
type Agent struct {
	ID     string `bson:"_id" json:"id"`
	Name   string `bson:"name" json:"name"`
	Email  string `bson:"email,omitempty" json:"email,omitempty"`
	Phone  string `bson:"phone,omitempty" json:"phone,omitempty"`
	Role   string `bson:"role" json:"role"`
	Active bool   `bson:"active" json:"active"`
}

type Client struct {
	ID             string     `bson:"_id" json:"id"`
	AgentID        string     `bson:"agent_id" json:"agent_id"`
	Name           string     `bson:"name" json:"name"`
	Phone          string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Email          string     `bson:"email,omitempty" json:"email,omitempty"`
	BirthDate      *time.Time `bson:"birth_date,omitempty" json:"birth_date,omitempty"`
	Importance     Importance `bson:"importance" json:"importance"`
	StageID        string     `bson:"stage_id,omitempty" json:"stage_id,omitempty"`
	StageChangedAt *time.Time `bson:"stage_changed_at,omitempty" json:"stage_changed_at,omitempty"`
	ContractedAt   *time.Time `bson:"contracted_at,omitempty" json:"contracted_at,omitempty"`
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at" json:"updated_at"`
}

// StageEnteredAt is when the client moved into its current stage, falling back to the last update.
func (c *Client) StageEnteredAt() time.Time {
	if c.StageChangedAt != nil {
		return *c.StageChangedAt
	}
	return c.UpdatedAt
}

// ContractDate falls back to the last update for rows migrated before contracted_at existed.
func (c *Client) ContractDate() time.Time {
	if c.ContractedAt != nil {
		return *c.ContractedAt
	}
	return c.UpdatedAt
}

type PipelineStage struct {
	ID      string `bson:"_id" json:"id"`
	AgentID string `bson:"agent_id" json:"agent_id"`
	Name    string `bson:"name" json:"name"`
	Order   int    `bson:"order" json:"order"`
}

var (
	excludedMarkers = []string{"excluded", "제외"}
	contractMarkers = []string{"contract", "계약"}
	completeMarkers = []string{"completed", "complete", "완료", "체결"}
	// negated forms are removed before completeMarkers are matched
	incompleteMarkers = []string{"incomplete", "uncompleted", "not completed", "미완료", "미체결"}
)

// IsTerminal reports whether the stage ends the pipeline (exclusion or completion).
func (s *PipelineStage) IsTerminal() bool {
	return containsAny(s.Name, excludedMarkers) || isCompletion(s.Name)
}

// IsContract reports whether the stage is any contract stage, completed or not.
func (s *PipelineStage) IsContract() bool {
	return containsAny(s.Name, contractMarkers)
}

func (s *PipelineStage) IsContractComplete() bool {
	return s.IsContract() && isCompletion(s.Name)
}

// IsOpenContract is a contract stage that still needs closing.
func (s *PipelineStage) IsOpenContract() bool {
	return s.IsContract() && !s.IsContractComplete() && !s.IsTerminal()
}

func isCompletion(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range incompleteMarkers {
		lower = strings.ReplaceAll(lower, m, " ")
	}
	return containsAny(lower, completeMarkers)
}

func containsAny(name string, markers []string) bool {
	lower := strings.ToLower(name)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Stages indexes an agent's pipeline by stage id.
type Stages map[string]PipelineStage

func NewStages(list []PipelineStage) Stages {
	out := make(Stages, len(list))
	for _, s := range list {
		out[s.ID] = s
	}
	return out
}

// Of returns the client's current stage, or nil when unassigned or unknown.
func (s Stages) Of(c *Client) *PipelineStage {
	if c.StageID == "" {
		return nil
	}
	st, ok := s[c.StageID]
	if !ok {
		return nil
	}
	return &st
}

type Meeting struct {
	ID          string        `bson:"_id" json:"id"`
	AgentID     string        `bson:"agent_id" json:"agent_id"`
	ClientID    string        `bson:"client_id,omitempty" json:"client_id,omitempty"`
	ClientName  string        `bson:"client_name,omitempty" json:"client_name,omitempty"`
	Title       string        `bson:"title" json:"title"`
	Location    string        `bson:"location,omitempty" json:"location,omitempty"`
	ScheduledAt time.Time     `bson:"scheduled_at" json:"scheduled_at"`
	Status      MeetingStatus `bson:"status" json:"status"`
}
