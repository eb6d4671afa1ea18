package evaluator

import (
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"
)

// Realtime builds the candidates raised directly by domain events rather than by a batch.
type Realtime struct {
	*Env
	Meeting *MeetingReminderEvaluator
}

func NewRealtime(env *Env, meeting *MeetingReminderEvaluator) *Realtime {
	return &Realtime{Env: env, Meeting: meeting}
}

// StageChanged returns the candidate for a client that just moved into st.
// Only contract stages produce one: an open contract stage raises the entry alert,
// a completed one the goal achievement.
func (r *Realtime) StageChanged(agent business.Agent, c *business.Client, st *business.PipelineStage) (notification.Candidate, bool) {
	if st == nil || !st.IsContract() {
		return notification.Candidate{}, false
	}
	entered := c.StageEnteredAt()
	meta := map[string]interface{}{"clientId": c.ID, "stageId": st.ID}
	vars := Vars{"clientName": c.Name, "stageName": st.Name}

	if st.IsContractComplete() {
		cand := r.candidate(agent, "stage_changed", notification.TypeGoalAchievement, notification.PriorityNormal,
			MsgContractCompleted, vars, meta)
		cand.DedupKey = DedupKey("contract_completed", agent.ID, c.ID, dateKey(c.ContractDate(), r.Location))
		return cand, true
	}
	if !st.IsOpenContract() {
		return notification.Candidate{}, false
	}
	cand := r.candidate(agent, "stage_changed", notification.TypeContractExpiry, notification.PriorityHigh,
		MsgContractEntered, vars, meta)
	cand.DedupKey = ContractEntryKey(agent.ID, c.ID, entered, r.Location)
	return cand, true
}

// MeetingScheduled returns the confirmation for m plus the reminder already due at now, if any.
func (r *Realtime) MeetingScheduled(agent business.Agent, m *business.Meeting, now time.Time) []notification.Candidate {
	if m.Status != business.MeetingScheduled || !m.ScheduledAt.After(now) {
		return nil
	}
	confirm := r.candidate(agent, "meeting_scheduled", notification.TypeMeetingReminder, notification.PriorityNormal,
		MsgMeetingConfirmed,
		Vars{"meetingTitle": m.Title, "clientName": m.ClientName, "meetingTime": m.ScheduledAt.In(r.Location).Format("01/02 15:04")},
		map[string]interface{}{"meetingId": m.ID, "clientId": m.ClientID, "window": "confirmation"},
	)
	confirm.DedupKey = DedupKey("meeting_confirmed", m.ID, instantKey(m.ScheduledAt))

	out := []notification.Candidate{confirm}
	if r.Meeting != nil {
		if cand, ok := r.Meeting.Reminder(agent, m, now); ok {
			out = append(out, cand)
		}
	}
	return out
}

// InvitationUsed tells the inviter that someone joined through their invitation.
func (r *Realtime) InvitationUsed(inviter business.Agent, inviteeID, inviteeName string) notification.Candidate {
	cand := r.candidate(inviter, "invitation_used", notification.TypeTeamUpdate, notification.PriorityNormal,
		MsgInvitationUsed, Vars{"inviteeName": inviteeName},
		map[string]interface{}{"inviteeId": inviteeID, "inviteeName": inviteeName},
	)
	who := inviteeID
	if who == "" {
		who = inviteeName
	}
	cand.DedupKey = DedupKey("invitation_used", inviter.ID, who)
	return cand
}
