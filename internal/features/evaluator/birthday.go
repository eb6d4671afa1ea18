package evaluator

import (
	"context"
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"
)

const birthdayWindowDays = 3

// BirthdayEvaluator reminds agents of client birthdays today and in the next three days,
// whatever stage the client is in.
type BirthdayEvaluator struct {
	*Env
}

func NewBirthdayEvaluator(env *Env) *BirthdayEvaluator {
	return &BirthdayEvaluator{Env: env}
}

func (e *BirthdayEvaluator) Name() string { return "birthday" }

func (e *BirthdayEvaluator) Evaluate(ctx context.Context, agent business.Agent, now time.Time) ([]notification.Candidate, error) {
	clients, err := e.Store.ListClients(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	var out []notification.Candidate
	for i := range clients {
		c := &clients[i]
		if c.BirthDate == nil {
			continue
		}
		days := DaysUntilBirthday(*c.BirthDate, now, e.Location)
		if days > birthdayWindowDays {
			continue
		}

		priority, key := notification.PriorityNormal, MsgBirthdayUpcoming
		if days == 0 {
			priority, key = notification.PriorityHigh, MsgBirthdayToday
		}
		cand := e.candidate(agent, e.Name(), notification.TypeBirthdayReminder, priority, key,
			Vars{"clientName": c.Name, "daysUntil": days},
			map[string]interface{}{"clientId": c.ID, "daysUntil": days},
		)
		cand.DedupKey = DedupKey(e.Name(), agent.ID, c.ID, dateKey(now, e.Location))
		out = append(out, cand)
	}
	return out, nil
}
