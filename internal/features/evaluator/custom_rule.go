package evaluator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"
	"insure-crm/pkg/condition"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CustomRuleEvaluator runs the agent's active rows from the rules table against each client.
// A rule whose condition fails to compile or run is logged and skipped.
type CustomRuleEvaluator struct {
	*Env
	Rules  notification.RuleRepository
	Logger *zap.Logger

	mu    sync.Mutex
	cache map[primitive.ObjectID]compiledRule
}

// compiledRule is the program built from a rule as of its UpdatedAt.
type compiledRule struct {
	version time.Time
	program *condition.Program
}

func NewCustomRuleEvaluator(env *Env, rules notification.RuleRepository, logger *zap.Logger) *CustomRuleEvaluator {
	return &CustomRuleEvaluator{
		Env:    env,
		Rules:  rules,
		Logger: logger,
		cache:  map[primitive.ObjectID]compiledRule{},
	}
}

func (e *CustomRuleEvaluator) Name() string { return "custom_rule" }

func (e *CustomRuleEvaluator) program(rule *notification.Rule) (*condition.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.cache[rule.ID]; ok && c.version.Equal(rule.UpdatedAt) {
		return c.program, nil
	}
	p, err := condition.Compile(rule.Condition, notification.RuleVariables...)
	if err != nil {
		delete(e.cache, rule.ID)
		return nil, err
	}
	e.cache[rule.ID] = compiledRule{version: rule.UpdatedAt, program: p}
	return p, nil
}

// ruleVars exposes a client to rule conditions under the names in notification.RuleVariables.
func (e *CustomRuleEvaluator) ruleVars(c *business.Client, st *business.PipelineStage, now time.Time) map[string]interface{} {
	daysUntilBirthday := -1
	if c.BirthDate != nil {
		daysUntilBirthday = DaysUntilBirthday(*c.BirthDate, now, e.Location)
	}
	local := now.In(e.Location)
	return map[string]interface{}{
		"client": map[string]interface{}{
			"id":         c.ID,
			"name":       c.Name,
			"phone":      c.Phone,
			"email":      c.Email,
			"importance": string(c.Importance),
		},
		"importance":              string(c.Importance),
		"stage":                   stageName(st),
		"stage_terminal":          st != nil && st.IsTerminal(),
		"stage_contract":          st != nil && st.IsContract(),
		"days_since_update":       DaysSince(c.UpdatedAt, now),
		"days_since_stage_change": DaysSince(c.StageEnteredAt(), now),
		"days_until_birthday":     daysUntilBirthday,
		"weekday":                 int(local.Weekday()),
		"hour":                    local.Hour(),
	}
}

func (e *CustomRuleEvaluator) Evaluate(ctx context.Context, agent business.Agent, now time.Time) ([]notification.Candidate, error) {
	if e.Rules == nil {
		return nil, nil
	}
	rules, err := e.Rules.ListActive(ctx, agent.ID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	clients, stages, err := e.clientsWithStages(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	var out []notification.Candidate
	for i := range rules {
		rule := &rules[i]
		prog, err := e.program(rule)
		if err != nil {
			e.Logger.Warn("Skipping rule with invalid condition",
				zap.String("rule_id", rule.ID.Hex()), zap.String("agent_id", agent.ID), zap.Error(err))
			continue
		}

		for j := range clients {
			c := &clients[j]
			st := stages.Of(c)
			vars := e.ruleVars(c, st, now)
			match, err := prog.Eval(ctx, vars)
			if err != nil {
				e.Logger.Warn("Rule condition failed",
					zap.String("rule_id", rule.ID.Hex()), zap.String("client_id", c.ID), zap.Error(err))
				break
			}
			if !match {
				continue
			}
			out = append(out, e.ruleCandidate(agent, rule, c, st, vars, now))
		}
	}
	return out, nil
}

func (e *CustomRuleEvaluator) ruleCandidate(agent business.Agent, rule *notification.Rule, c *business.Client, st *business.PipelineStage, vars map[string]interface{}, now time.Time) notification.Candidate {
	text := Vars{
		"clientName":      c.Name,
		"stageName":       stageName(st),
		"daysSinceUpdate": vars["days_since_update"],
		"ruleName":        rule.Name,
	}
	priority := rule.Priority
	if priority == "" {
		priority = notification.PriorityNormal
	}
	channel := rule.Channel
	if channel == "" {
		channel = notification.ChannelInApp
	}
	recipient := agent.ID
	switch channel {
	case notification.ChannelEmail:
		recipient = agent.Email
	case notification.ChannelSMS, notification.ChannelKakao:
		recipient = agent.Phone
	}

	period := instantKey(c.UpdatedAt)
	if rule.OncePerDay {
		period = dateKey(now, e.Location)
	}
	return notification.Candidate{
		UserID:    agent.ID,
		Type:      rule.Type,
		Channel:   channel,
		Priority:  priority,
		Title:     Render(rule.Title, text),
		Message:   Render(rule.Message, text),
		Recipient: recipient,
		Metadata: map[string]interface{}{
			"rule":     fmt.Sprintf("%s:%s", e.Name(), rule.Name),
			"ruleId":   rule.ID.Hex(),
			"clientId": c.ID,
		},
		DedupKey: DedupKey(e.Name(), rule.ID.Hex(), agent.ID, c.ID, period),
	}
}
