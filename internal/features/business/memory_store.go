package business

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// Fixtures is the JSON shape read by LoadFixtures.
type Fixtures struct {
	Agents   []Agent         `json:"agents"`
	Clients  []Client        `json:"clients"`
	Stages   []PipelineStage `json:"stages"`
	Meetings []Meeting       `json:"meetings"`
}

// MemoryStore serves business data from memory. The trigger CLI uses it to
// preview a run against a fixture file; tests use it as the store double.
type MemoryStore struct {
	mu       sync.RWMutex
	fixtures Fixtures
	// Fail makes every read for the agent id return the error.
	Fail map[string]error
}

func NewMemoryStore(f Fixtures) *MemoryStore {
	return &MemoryStore{fixtures: f, Fail: map[string]error{}}
}

func LoadFixtures(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixtures
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}
	return NewMemoryStore(f), nil
}

func (m *MemoryStore) failure(agentID string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Fail[agentID]
}

func (m *MemoryStore) ListActiveAgents(ctx context.Context) ([]Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Agent
	for _, a := range m.fixtures.Agents {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	if err := m.failure(id); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.fixtures.Agents {
		if a.ID == id {
			agent := a
			return &agent, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListClients(ctx context.Context, agentID string) ([]Client, error) {
	if err := m.failure(agentID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Client
	for _, c := range m.fixtures.Clients {
		if c.AgentID == agentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetClient(ctx context.Context, agentID, clientID string) (*Client, error) {
	clients, err := m.ListClients(ctx, agentID)
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		if c.ID == clientID {
			client := c
			return &client, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListStages(ctx context.Context, agentID string) ([]PipelineStage, error) {
	if err := m.failure(agentID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []PipelineStage
	for _, s := range m.fixtures.Stages {
		if s.AgentID == agentID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *MemoryStore) GetStage(ctx context.Context, agentID, stageID string) (*PipelineStage, error) {
	stages, err := m.ListStages(ctx, agentID)
	if err != nil {
		return nil, err
	}
	for _, s := range stages {
		if s.ID == stageID {
			stage := s
			return &stage, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListMeetings(ctx context.Context, agentID string, from, to time.Time) ([]Meeting, error) {
	if err := m.failure(agentID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Meeting
	for _, mt := range m.fixtures.Meetings {
		if mt.AgentID != agentID || mt.ScheduledAt.Before(from) || !mt.ScheduledAt.Before(to) {
			continue
		}
		out = append(out, mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (m *MemoryStore) GetMeeting(ctx context.Context, agentID, meetingID string) (*Meeting, error) {
	if err := m.failure(agentID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mt := range m.fixtures.Meetings {
		if mt.AgentID == agentID && mt.ID == meetingID {
			meeting := mt
			return &meeting, nil
		}
	}
	return nil, nil
}
