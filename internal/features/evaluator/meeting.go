package evaluator

import (
	"context"
	"math"
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"
)

const (
	hourWindow = 60 * time.Minute
	soonWindow = 10 * time.Minute
)

// MeetingReminderEvaluator emits the one-hour and ten-minute reminders for scheduled meetings.
// The windows do not overlap: (10m, 60m] is the hour reminder, (0, 10m] the short one.
type MeetingReminderEvaluator struct {
	*Env
}

func NewMeetingReminderEvaluator(env *Env) *MeetingReminderEvaluator {
	return &MeetingReminderEvaluator{Env: env}
}

func (e *MeetingReminderEvaluator) Name() string { return "meeting_reminder" }

func (e *MeetingReminderEvaluator) Evaluate(ctx context.Context, agent business.Agent, now time.Time) ([]notification.Candidate, error) {
	meetings, err := e.Store.ListMeetings(ctx, agent.ID, now, now.Add(hourWindow+time.Second))
	if err != nil {
		return nil, err
	}

	var out []notification.Candidate
	for i := range meetings {
		if cand, ok := e.Reminder(agent, &meetings[i], now); ok {
			out = append(out, cand)
		}
	}
	return out, nil
}

// Reminder returns the reminder due for m at now, if any.
func (e *MeetingReminderEvaluator) Reminder(agent business.Agent, m *business.Meeting, now time.Time) (notification.Candidate, bool) {
	if m.Status != business.MeetingScheduled {
		return notification.Candidate{}, false
	}

	until := m.ScheduledAt.Sub(now)
	var (
		window   string
		priority notification.Priority
		key      string
	)
	switch {
	case until > soonWindow && until <= hourWindow:
		window, priority, key = "1h", notification.PriorityHigh, MsgMeetingHour
	case until > 0 && until <= soonWindow:
		window, priority, key = "10m", notification.PriorityUrgent, MsgMeetingSoon
	default:
		return notification.Candidate{}, false
	}

	minutes := int(math.Ceil(until.Minutes()))
	cand := e.candidate(agent, e.Name(), notification.TypeMeetingReminder, priority, key,
		Vars{"meetingTitle": m.Title, "clientName": m.ClientName, "minutesUntil": minutes},
		map[string]interface{}{"meetingId": m.ID, "clientId": m.ClientID, "minutesUntil": minutes, "window": window},
	)
	cand.DedupKey = DedupKey(e.Name(), m.ID, window, instantKey(m.ScheduledAt))
	return cand, true
}
