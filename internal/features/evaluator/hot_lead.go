package evaluator

import (
	"context"
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"
)

const (
	hotLeadMin = 24 * time.Hour
	hotLeadMax = 72 * time.Hour
)

// HotLeadEvaluator flags high-importance prospects that went quiet for one to three days.
type HotLeadEvaluator struct {
	*Env
}

func NewHotLeadEvaluator(env *Env) *HotLeadEvaluator {
	return &HotLeadEvaluator{Env: env}
}

func (e *HotLeadEvaluator) Name() string { return "hot_lead" }

func (e *HotLeadEvaluator) Evaluate(ctx context.Context, agent business.Agent, now time.Time) ([]notification.Candidate, error) {
	clients, stages, err := e.clientsWithStages(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	var out []notification.Candidate
	for i := range clients {
		c := &clients[i]
		if c.Importance != business.ImportanceHigh {
			continue
		}
		if st := stages.Of(c); st != nil && (st.IsContract() || st.IsTerminal()) {
			continue
		}
		since := now.Sub(c.UpdatedAt)
		if since < hotLeadMin || since > hotLeadMax {
			continue
		}

		hours := int(since.Hours())
		cand := e.candidate(agent, e.Name(), notification.TypeFollowUpReminder, notification.PriorityHigh, MsgHotLead,
			Vars{"clientName": c.Name, "hoursSinceUpdate": hours},
			map[string]interface{}{"clientId": c.ID, "hoursSinceUpdate": hours, "importance": string(c.Importance)},
		)
		cand.DedupKey = DedupKey(e.Name(), agent.ID, c.ID, instantKey(c.UpdatedAt))
		out = append(out, cand)
	}
	return out, nil
}
