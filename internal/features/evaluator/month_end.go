package evaluator

import (
	"context"
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"
)

// MonthEndEvaluator nudges agents toward their monthly goal during the last ten days.
type MonthEndEvaluator struct {
	*Env
}

func NewMonthEndEvaluator(env *Env) *MonthEndEvaluator {
	return &MonthEndEvaluator{Env: env}
}

func (e *MonthEndEvaluator) Name() string { return "month_end" }

func monthEndPriority(daysLeft int) (notification.Priority, bool) {
	switch {
	case daysLeft <= 3:
		return notification.PriorityUrgent, true
	case daysLeft <= 7:
		return notification.PriorityHigh, true
	case daysLeft <= 10:
		return notification.PriorityNormal, true
	}
	return "", false
}

func (e *MonthEndEvaluator) Evaluate(ctx context.Context, agent business.Agent, now time.Time) ([]notification.Candidate, error) {
	daysLeft := DaysUntilMonthEnd(now, e.Location)
	priority, ok := monthEndPriority(daysLeft)
	if !ok {
		return nil, nil
	}

	clients, stages, err := e.clientsWithStages(ctx, agent.ID)
	if err != nil {
		return nil, err
	}
	open := 0
	for i := range clients {
		if st := stages.Of(&clients[i]); st == nil || !st.IsTerminal() {
			open++
		}
	}

	cand := e.candidate(agent, e.Name(), notification.TypeGoalDeadline, priority, MsgMonthEnd,
		Vars{"daysUntil": daysLeft, "openClients": open},
		map[string]interface{}{"daysUntil": daysLeft, "openClients": open},
	)
	cand.DedupKey = DedupKey(e.Name(), agent.ID, dateKey(now, e.Location))
	return []notification.Candidate{cand}, nil
}
