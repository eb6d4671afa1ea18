// Package evaluator holds the rules that inspect one agent's business data and
// propose notification candidates. Evaluators only read; the trigger runner
// passes their candidates to the notification writer.
package evaluator

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"insure-crm/internal/config"
	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"
)

type Evaluator interface {
	Name() string
	// Evaluate returns the candidates for agent at now. An agent with no
	// qualifying data yields an empty slice and no error.
	Evaluate(ctx context.Context, agent business.Agent, now time.Time) ([]notification.Candidate, error)
}

// Env carries what every evaluator reads from.
type Env struct {
	Store    business.Store
	Messages *Catalog
	Location *time.Location
}

func NewEnv(store business.Store, messages *Catalog, cfg *config.Config) *Env {
	return &Env{
		Store:    store,
		Messages: messages,
		Location: cfg.Location(),
	}
}

// DedupKey hashes the natural key parts of a candidate.
func DedupKey(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func dateKey(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("2006-01-02")
}

func instantKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// candidate builds an in-app candidate addressed to the agent.
func (e *Env) candidate(agent business.Agent, rule string, typ notification.NotificationType, priority notification.Priority, msgKey string, vars Vars, meta map[string]interface{}) notification.Candidate {
	title, message := e.Messages.Render(msgKey, vars)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["rule"] = rule
	return notification.Candidate{
		UserID:    agent.ID,
		Type:      typ,
		Channel:   notification.ChannelInApp,
		Priority:  priority,
		Title:     title,
		Message:   message,
		Recipient: agent.ID,
		Metadata:  meta,
	}
}

// clientsWithStages loads an agent's clients together with the pipeline index.
func (e *Env) clientsWithStages(ctx context.Context, agentID string) ([]business.Client, business.Stages, error) {
	clients, err := e.Store.ListClients(ctx, agentID)
	if err != nil {
		return nil, nil, err
	}
	if len(clients) == 0 {
		return nil, business.Stages{}, nil
	}
	stages, err := e.Store.ListStages(ctx, agentID)
	if err != nil {
		return nil, nil, err
	}
	return clients, business.NewStages(stages), nil
}

func stageName(st *business.PipelineStage) string {
	if st == nil {
		return ""
	}
	return st.Name
}
