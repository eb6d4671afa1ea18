package evaluator

import (
	"insure-crm/internal/features/notification"

	"go.uber.org/zap"
)

// Registry groups the evaluators by the schedule that runs them.
type Registry struct {
	Daily    []Evaluator
	Meeting  *MeetingReminderEvaluator
	Realtime *Realtime
}

func NewRegistry(env *Env, rules notification.RuleRepository, logger *zap.Logger) *Registry {
	meeting := NewMeetingReminderEvaluator(env)
	return &Registry{
		Daily: []Evaluator{
			NewBirthdayEvaluator(env),
			NewFollowUpEvaluator(env),
			NewPipelineStagnationEvaluator(env),
			NewContractUrgencyEvaluator(env),
			NewMonthEndEvaluator(env),
			NewHotLeadEvaluator(env),
			NewClientCareEvaluator(env),
			NewCustomRuleEvaluator(env, rules, logger),
		},
		Meeting:  meeting,
		Realtime: NewRealtime(env, meeting),
	}
}
