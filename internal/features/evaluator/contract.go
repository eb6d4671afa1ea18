package evaluator

import (
	"context"
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"
)

const contractStallDays = 3

// ContractUrgencyEvaluator watches clients in an open contract stage: once on the
// day they enter it, then daily while the client sits untouched for three days or more.
type ContractUrgencyEvaluator struct {
	*Env
}

func NewContractUrgencyEvaluator(env *Env) *ContractUrgencyEvaluator {
	return &ContractUrgencyEvaluator{Env: env}
}

func (e *ContractUrgencyEvaluator) Name() string { return "contract_urgency" }

func (e *ContractUrgencyEvaluator) Evaluate(ctx context.Context, agent business.Agent, now time.Time) ([]notification.Candidate, error) {
	clients, stages, err := e.clientsWithStages(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	var out []notification.Candidate
	for i := range clients {
		c := &clients[i]
		st := stages.Of(c)
		if st == nil || !st.IsOpenContract() {
			continue
		}
		if cand, ok := e.forClient(agent, c, st, now); ok {
			out = append(out, cand)
		}
	}
	return out, nil
}

func (e *ContractUrgencyEvaluator) forClient(agent business.Agent, c *business.Client, st *business.PipelineStage, now time.Time) (notification.Candidate, bool) {
	entered := c.StageEnteredAt()
	meta := map[string]interface{}{"clientId": c.ID, "stageId": st.ID}

	if CalendarDaysBetween(entered, now, e.Location) == 0 {
		cand := e.candidate(agent, e.Name(), notification.TypeContractExpiry, notification.PriorityHigh, MsgContractEntered,
			Vars{"clientName": c.Name, "stageName": st.Name}, meta)
		cand.DedupKey = ContractEntryKey(agent.ID, c.ID, entered, e.Location)
		return cand, true
	}

	days := DaysSince(c.UpdatedAt, now)
	if days < contractStallDays {
		return notification.Candidate{}, false
	}
	meta["daysSinceUpdate"] = days
	cand := e.candidate(agent, e.Name(), notification.TypeContractExpiry, notification.PriorityUrgent, MsgContractStalled,
		Vars{"clientName": c.Name, "stageName": st.Name, "daysSinceUpdate": days}, meta)
	cand.DedupKey = DedupKey(e.Name(), "stalled", agent.ID, c.ID, dateKey(now, e.Location))
	return cand, true
}

// ContractEntryKey is shared with the stage-change hook so a client entering a contract
// stage is announced once whether the hook or the daily batch sees it first.
func ContractEntryKey(agentID, clientID string, entered time.Time, loc *time.Location) string {
	return DedupKey("contract_urgency", "entered", agentID, clientID, dateKey(entered, loc))
}
