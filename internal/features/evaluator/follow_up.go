package evaluator

import (
	"context"
	"strconv"
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"
)

type tier struct {
	days     int
	priority notification.Priority
}

// highest first; only the first tier reached fires
var followUpTiers = []tier{
	{30, notification.PriorityHigh},
	{14, notification.PriorityNormal},
	{7, notification.PriorityLow},
}

func reachedTier(tiers []tier, days int) (tier, bool) {
	for _, t := range tiers {
		if days >= t.days {
			return t, true
		}
	}
	return tier{}, false
}

// FollowUpEvaluator flags clients nobody has touched for 7, 14 or 30 days.
// Each tier fires once per stagnation period: an update to the client starts a new one.
type FollowUpEvaluator struct {
	*Env
}

func NewFollowUpEvaluator(env *Env) *FollowUpEvaluator {
	return &FollowUpEvaluator{Env: env}
}

func (e *FollowUpEvaluator) Name() string { return "follow_up" }

func (e *FollowUpEvaluator) Evaluate(ctx context.Context, agent business.Agent, now time.Time) ([]notification.Candidate, error) {
	clients, stages, err := e.clientsWithStages(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	var out []notification.Candidate
	for i := range clients {
		c := &clients[i]
		if st := stages.Of(c); st != nil && st.IsTerminal() {
			continue
		}
		days := DaysSince(c.UpdatedAt, now)
		t, ok := reachedTier(followUpTiers, days)
		if !ok {
			continue
		}

		cand := e.candidate(agent, e.Name(), notification.TypeFollowUpReminder, t.priority, MsgFollowUp,
			Vars{"clientName": c.Name, "daysSinceUpdate": days},
			map[string]interface{}{"clientId": c.ID, "daysSinceUpdate": days, "tier": t.days},
		)
		cand.DedupKey = DedupKey(e.Name(), agent.ID, c.ID, strconv.Itoa(t.days), instantKey(c.UpdatedAt))
		out = append(out, cand)
	}
	return out, nil
}
