package evaluator

import (
	"context"
	"strconv"
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"
)

var stagnationTiers = []tier{
	{14, notification.PriorityUrgent},
	{7, notification.PriorityNormal},
}

// PipelineStagnationEvaluator flags clients parked in a non-terminal stage for 7 or 14 days.
type PipelineStagnationEvaluator struct {
	*Env
}

func NewPipelineStagnationEvaluator(env *Env) *PipelineStagnationEvaluator {
	return &PipelineStagnationEvaluator{Env: env}
}

func (e *PipelineStagnationEvaluator) Name() string { return "pipeline_stagnation" }

func (e *PipelineStagnationEvaluator) Evaluate(ctx context.Context, agent business.Agent, now time.Time) ([]notification.Candidate, error) {
	clients, stages, err := e.clientsWithStages(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	var out []notification.Candidate
	for i := range clients {
		c := &clients[i]
		st := stages.Of(c)
		if st == nil || st.IsTerminal() {
			continue
		}
		days := DaysSince(c.UpdatedAt, now)
		t, ok := reachedTier(stagnationTiers, days)
		if !ok {
			continue
		}

		key := MsgStagnation
		if t.priority == notification.PriorityUrgent {
			key = MsgStagnationUrgent
		}
		cand := e.candidate(agent, e.Name(), notification.TypeFollowUpReminder, t.priority, key,
			Vars{"clientName": c.Name, "stageName": st.Name, "daysSinceUpdate": days},
			map[string]interface{}{"clientId": c.ID, "stageId": st.ID, "daysSinceUpdate": days, "tier": t.days},
		)
		cand.DedupKey = DedupKey(e.Name(), agent.ID, c.ID, st.ID, strconv.Itoa(t.days), instantKey(c.UpdatedAt))
		out = append(out, cand)
	}
	return out, nil
}
