package evaluator

import (
	"context"
	"strconv"
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"
)

const careBirthdayWindowDays = 7

// ClientCareEvaluator keeps in touch with contracted clients: contract anniversaries at
// 3, 6 and 12 months (then yearly) and birthdays later in the coming week.
// Birthdays within birthdayWindowDays are already covered by BirthdayEvaluator.
type ClientCareEvaluator struct {
	*Env
}

func NewClientCareEvaluator(env *Env) *ClientCareEvaluator {
	return &ClientCareEvaluator{Env: env}
}

func (e *ClientCareEvaluator) Name() string { return "client_care" }

// careMilestone returns the highest milestone reached after months.
func careMilestone(months int) (int, notification.Priority, bool) {
	switch {
	case months >= 12:
		return months / 12 * 12, notification.PriorityNormal, true
	case months >= 6:
		return 6, notification.PriorityNormal, true
	case months >= 3:
		return 3, notification.PriorityLow, true
	}
	return 0, "", false
}

func (e *ClientCareEvaluator) Evaluate(ctx context.Context, agent business.Agent, now time.Time) ([]notification.Candidate, error) {
	clients, stages, err := e.clientsWithStages(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	var out []notification.Candidate
	for i := range clients {
		c := &clients[i]
		st := stages.Of(c)
		if st == nil || !st.IsContractComplete() {
			continue
		}

		months := FullMonthsBetween(c.ContractDate(), now, e.Location)
		if milestone, priority, ok := careMilestone(months); ok {
			cand := e.candidate(agent, e.Name(), notification.TypeClientMilestone, priority, MsgCareMilestone,
				Vars{"clientName": c.Name, "months": milestone},
				map[string]interface{}{"clientId": c.ID, "months": milestone},
			)
			cand.DedupKey = DedupKey(e.Name(), "milestone", agent.ID, c.ID, strconv.Itoa(milestone))
			out = append(out, cand)
		}

		if c.BirthDate == nil {
			continue
		}
		days := DaysUntilBirthday(*c.BirthDate, now, e.Location)
		if days <= birthdayWindowDays || days > careBirthdayWindowDays {
			continue
		}
		cand := e.candidate(agent, e.Name(), notification.TypeBirthdayReminder, notification.PriorityNormal, MsgCareBirthday,
			Vars{"clientName": c.Name, "daysUntil": days},
			map[string]interface{}{"clientId": c.ID, "daysUntil": days},
		)
		cand.DedupKey = DedupKey(e.Name(), "birthday", agent.ID, c.ID, dateKey(now, e.Location))
		out = append(out, cand)
	}
	return out, nil
}
