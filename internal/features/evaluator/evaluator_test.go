package evaluator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"insure-crm/internal/features/business"
	"insure-crm/internal/features/notification"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	now   = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	agent = business.Agent{ID: "agent-1", Name: "김설계", Email: "agent@example.com", Active: true}
)

var testStages = []business.PipelineStage{
	{ID: "s-lead", AgentID: "agent-1", Name: "신규 리드", Order: 1},
	{ID: "s-consult", AgentID: "agent-1", Name: "상담 진행", Order: 2},
	{ID: "s-contract", AgentID: "agent-1", Name: "계약 진행", Order: 3},
	{ID: "s-done", AgentID: "agent-1", Name: "계약 완료", Order: 4},
	{ID: "s-excluded", AgentID: "agent-1", Name: "제외", Order: 5},
	{ID: "s-signed", AgentID: "agent-1", Name: "계약 체결", Order: 6},
}

func ptr(t time.Time) *time.Time { return &t }

func newEnv(clients []business.Client, meetings []business.Meeting) *Env {
	store := business.NewMemoryStore(business.Fixtures{
		Agents:   []business.Agent{agent},
		Clients:  clients,
		Stages:   testStages,
		Meetings: meetings,
	})
	return &Env{Store: store, Messages: NewCatalog(nil), Location: time.UTC}
}

func client(id string, updated time.Time) business.Client {
	return business.Client{ID: id, AgentID: "agent-1", Name: "고객" + id, StageID: "s-consult", UpdatedAt: updated, Importance: business.ImportanceMedium}
}

func byClient(cands []notification.Candidate) map[string]notification.Candidate {
	out := map[string]notification.Candidate{}
	for _, c := range cands {
		if id, ok := c.Metadata["clientId"].(string); ok {
			out[id] = c
		}
	}
	return out
}

func TestBirthdayBoundaries(t *testing.T) {
	today := client("today", now)
	today.BirthDate = ptr(time.Date(1990, 3, 10, 0, 0, 0, 0, time.UTC))
	plus3 := client("plus3", now)
	plus3.BirthDate = ptr(time.Date(1985, 3, 13, 0, 0, 0, 0, time.UTC))
	plus4 := client("plus4", now)
	plus4.BirthDate = ptr(time.Date(1985, 3, 14, 0, 0, 0, 0, time.UTC))
	noBirthday := client("none", now)
	contracted := client("contracted", now)
	contracted.StageID = "s-done"
	contracted.BirthDate = ptr(time.Date(1975, 3, 10, 0, 0, 0, 0, time.UTC))

	e := NewBirthdayEvaluator(newEnv([]business.Client{today, plus3, plus4, noBirthday, contracted}, nil))
	cands, err := e.Evaluate(context.Background(), agent, now)
	if err != nil {
		t.Fatal(err)
	}
	got := byClient(cands)

	if c, ok := got["today"]; !ok || c.Priority != notification.PriorityHigh || !strings.Contains(c.Title, "생일") {
		t.Errorf("today: %+v", c)
	}
	if c, ok := got["plus3"]; !ok || c.Priority != notification.PriorityNormal {
		t.Errorf("today+3: %+v", c)
	}
	if _, ok := got["plus4"]; ok {
		t.Error("today+4 must not produce a candidate")
	}
	if c, ok := got["contracted"]; !ok || c.Priority != notification.PriorityHigh {
		t.Errorf("contracted client today: %+v", c)
	}
	if len(cands) != 3 {
		t.Errorf("expected 3 candidates, got %d", len(cands))
	}
	for _, c := range cands {
		if c.Type != notification.TypeBirthdayReminder || c.UserID != agent.ID || c.DedupKey == "" {
			t.Errorf("malformed candidate %+v", c)
		}
	}
}

func TestFollowUpTiers(t *testing.T) {
	clients := []business.Client{
		client("d6", now.AddDate(0, 0, -6)),
		client("d7", now.AddDate(0, 0, -7)),
		client("d14", now.AddDate(0, 0, -14)),
		client("d30", now.AddDate(0, 0, -30)),
	}
	excluded := client("gone", now.AddDate(0, 0, -40))
	excluded.StageID = "s-excluded"
	signed := client("signed", now.AddDate(0, 0, -40))
	signed.StageID = "s-signed"
	clients = append(clients, excluded, signed)

	cands, err := NewFollowUpEvaluator(newEnv(clients, nil)).Evaluate(context.Background(), agent, now)
	if err != nil {
		t.Fatal(err)
	}
	got := byClient(cands)
	want := map[string]notification.Priority{
		"d7":  notification.PriorityLow,
		"d14": notification.PriorityNormal,
		"d30": notification.PriorityHigh,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(got), len(want))
	}
	for id, p := range want {
		if got[id].Priority != p {
			t.Errorf("%s: priority %s, want %s", id, got[id].Priority, p)
		}
	}
}

func TestStagnationThresholds(t *testing.T) {
	sevenExactly := client("d7", now.AddDate(0, 0, -7))
	justUnderSeven := client("d7-", now.AddDate(0, 0, -7).Add(time.Millisecond))
	fourteenExactly := client("d14", now.AddDate(0, 0, -14))
	justUnderFourteen := client("d14-", now.AddDate(0, 0, -14).Add(time.Millisecond))
	completed := client("done", now.AddDate(0, 0, -20))
	completed.StageID = "s-done"
	unstaged := client("nostage", now.AddDate(0, 0, -20))
	unstaged.StageID = ""
	signed := client("signed", now.AddDate(0, 0, -15))
	signed.StageID = "s-signed"

	env := newEnv([]business.Client{sevenExactly, justUnderSeven, fourteenExactly, justUnderFourteen, completed, unstaged, signed}, nil)
	cands, err := NewPipelineStagnationEvaluator(env).Evaluate(context.Background(), agent, now)
	if err != nil {
		t.Fatal(err)
	}
	got := byClient(cands)

	tests := []struct {
		id   string
		want notification.Priority
	}{
		{"d7", notification.PriorityNormal},
		{"d14-", notification.PriorityNormal},
		{"d14", notification.PriorityUrgent},
	}
	for _, tt := range tests {
		if got[tt.id].Priority != tt.want {
			t.Errorf("%s: priority %q, want %q", tt.id, got[tt.id].Priority, tt.want)
		}
	}
	for _, id := range []string{"d7-", "done", "nostage", "signed"} {
		if _, ok := got[id]; ok {
			t.Errorf("%s must not fire", id)
		}
	}
	if got["d7"].Metadata["rule"] != "pipeline_stagnation" {
		t.Errorf("metadata.rule = %v", got["d7"].Metadata["rule"])
	}
}

func TestContractUrgency(t *testing.T) {
	entered := client("entered", now.Add(-2*time.Hour))
	entered.StageID = "s-contract"
	entered.StageChangedAt = ptr(now.Add(-2 * time.Hour))

	stalled := client("stalled", now.AddDate(0, 0, -3))
	stalled.StageID = "s-contract"
	stalled.StageChangedAt = ptr(now.AddDate(0, 0, -5))

	fresh := client("fresh", now.AddDate(0, 0, -1))
	fresh.StageID = "s-contract"
	fresh.StageChangedAt = ptr(now.AddDate(0, 0, -2))

	completed := client("completed", now.AddDate(0, 0, -10))
	completed.StageID = "s-done"

	env := newEnv([]business.Client{entered, stalled, fresh, completed}, nil)
	cands, err := NewContractUrgencyEvaluator(env).Evaluate(context.Background(), agent, now)
	if err != nil {
		t.Fatal(err)
	}
	got := byClient(cands)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got["entered"].Priority != notification.PriorityHigh {
		t.Errorf("entry day priority = %s", got["entered"].Priority)
	}
	if got["stalled"].Priority != notification.PriorityUrgent {
		t.Errorf("stalled priority = %s", got["stalled"].Priority)
	}
	if got["entered"].DedupKey != ContractEntryKey(agent.ID, "entered", *entered.StageChangedAt, time.UTC) {
		t.Error("entry candidate should use the shared entry key")
	}
}

func TestMeetingReminderDoubleWindow(t *testing.T) {
	meetings := []business.Meeting{
		{ID: "m55", AgentID: "agent-1", Title: "보험 상담", ScheduledAt: now.Add(55 * time.Minute), Status: business.MeetingScheduled},
		{ID: "m8", AgentID: "agent-1", Title: "계약 서명", ScheduledAt: now.Add(8 * time.Minute), Status: business.MeetingScheduled},
		{ID: "m90", AgentID: "agent-1", Title: "later", ScheduledAt: now.Add(90 * time.Minute), Status: business.MeetingScheduled},
		{ID: "mcancel", AgentID: "agent-1", Title: "cancelled", ScheduledAt: now.Add(30 * time.Minute), Status: business.MeetingCancelled},
	}
	cands, err := NewMeetingReminderEvaluator(newEnv(nil, meetings)).Evaluate(context.Background(), agent, now)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]notification.Candidate{}
	for _, c := range cands {
		got[c.Metadata["meetingId"].(string)] = c
	}
	if len(got) != 2 {
		t.Fatalf("expected reminders for m55 and m8 only, got %d", len(got))
	}
	if c := got["m55"]; c.Metadata["window"] != "1h" || c.Priority != notification.PriorityHigh {
		t.Errorf("m55: window %v priority %s", c.Metadata["window"], c.Priority)
	}
	if c := got["m8"]; c.Metadata["window"] != "10m" || c.Priority != notification.PriorityUrgent {
		t.Errorf("m8: window %v priority %s", c.Metadata["window"], c.Priority)
	}
}

func TestMonthEndLadder(t *testing.T) {
	env := newEnv([]business.Client{client("a", now)}, nil)
	e := NewMonthEndEvaluator(env)

	tests := []struct {
		day  int
		want notification.Priority
	}{
		{20, ""},
		{21, notification.PriorityNormal},
		{24, notification.PriorityHigh},
		{28, notification.PriorityUrgent},
		{31, notification.PriorityUrgent},
	}
	for _, tt := range tests {
		at := time.Date(2026, 3, tt.day, 9, 0, 0, 0, time.UTC)
		cands, err := e.Evaluate(context.Background(), agent, at)
		if err != nil {
			t.Fatal(err)
		}
		if tt.want == "" {
			if len(cands) != 0 {
				t.Errorf("March %d: expected nothing, got %d", tt.day, len(cands))
			}
			continue
		}
		if len(cands) != 1 || cands[0].Priority != tt.want {
			t.Errorf("March %d: got %+v, want priority %s", tt.day, cands, tt.want)
			continue
		}
		if cands[0].Type != notification.TypeGoalDeadline || cands[0].Metadata["openClients"] != 1 {
			t.Errorf("March %d: unexpected candidate %+v", tt.day, cands[0])
		}
	}
}

func TestHotLead(t *testing.T) {
	hot := client("hot", now.Add(-30*time.Hour))
	hot.Importance = business.ImportanceHigh
	tooFresh := client("fresh", now.Add(-2*time.Hour))
	tooFresh.Importance = business.ImportanceHigh
	tooOld := client("old", now.Add(-80*time.Hour))
	tooOld.Importance = business.ImportanceHigh
	inContract := client("contract", now.Add(-30*time.Hour))
	inContract.Importance = business.ImportanceHigh
	inContract.StageID = "s-contract"
	normal := client("normal", now.Add(-30*time.Hour))

	env := newEnv([]business.Client{hot, tooFresh, tooOld, inContract, normal}, nil)
	cands, err := NewHotLeadEvaluator(env).Evaluate(context.Background(), agent, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 || cands[0].Metadata["clientId"] != "hot" || cands[0].Priority != notification.PriorityHigh {
		t.Errorf("expected only the hot lead, got %+v", cands)
	}
}

func TestClientCare(t *testing.T) {
	sixMonths := client("six", now)
	sixMonths.StageID = "s-done"
	sixMonths.ContractedAt = ptr(now.AddDate(0, -7, 0))

	threeMonths := client("three", now)
	threeMonths.StageID = "s-done"
	threeMonths.ContractedAt = ptr(now.AddDate(0, -3, 0))
	threeMonths.BirthDate = ptr(time.Date(1980, 3, 15, 0, 0, 0, 0, time.UTC))

	recent := client("recent", now)
	recent.StageID = "s-done"
	recent.ContractedAt = ptr(now.AddDate(0, -1, 0))

	notContracted := client("prospect", now)
	notContracted.ContractedAt = ptr(now.AddDate(-1, 0, 0))

	birthdayToday := client("bday", now)
	birthdayToday.StageID = "s-done"
	birthdayToday.ContractedAt = ptr(now.AddDate(0, -1, 0))
	birthdayToday.BirthDate = ptr(time.Date(1970, 3, 10, 0, 0, 0, 0, time.UTC))

	env := newEnv([]business.Client{sixMonths, threeMonths, recent, notContracted, birthdayToday}, nil)
	cands, err := NewClientCareEvaluator(env).Evaluate(context.Background(), agent, now)
	if err != nil {
		t.Fatal(err)
	}

	var milestones, birthdays int
	for _, c := range cands {
		switch c.Type {
		case notification.TypeClientMilestone:
			milestones++
			if c.Metadata["clientId"] == "six" && (c.Metadata["months"] != 6 || c.Priority != notification.PriorityNormal) {
				t.Errorf("six: %+v", c)
			}
			if c.Metadata["clientId"] == "three" && c.Priority != notification.PriorityLow {
				t.Errorf("three: %+v", c)
			}
		case notification.TypeBirthdayReminder:
			birthdays++
			if c.Metadata["clientId"] != "three" || c.Priority != notification.PriorityNormal {
				t.Errorf("birthday: %+v", c)
			}
		}
	}
	if milestones != 2 || birthdays != 1 {
		t.Errorf("milestones=%d birthdays=%d, want 2/1", milestones, birthdays)
	}
}

type stubRules struct {
	rules []notification.Rule
	err   error
}

func (s *stubRules) List(ctx context.Context) ([]notification.Rule, error) { return s.rules, s.err }
func (s *stubRules) ListActive(ctx context.Context, agentID string) ([]notification.Rule, error) {
	return s.rules, s.err
}
func (s *stubRules) Get(ctx context.Context, id primitive.ObjectID) (*notification.Rule, error) {
	return nil, nil
}
func (s *stubRules) Create(ctx context.Context, r *notification.Rule) error { return nil }
func (s *stubRules) Update(ctx context.Context, r *notification.Rule) error { return nil }
func (s *stubRules) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return false, nil
}

func TestCustomRule(t *testing.T) {
	vip := client("vip", now.AddDate(0, 0, -5))
	vip.Importance = business.ImportanceHigh
	other := client("other", now.AddDate(0, 0, -5))

	rules := &stubRules{rules: []notification.Rule{
		{
			ID:         primitive.NewObjectID(),
			Name:       "vip idle",
			Active:     true,
			Type:       notification.TypeFollowUpReminder,
			Priority:   notification.PriorityHigh,
			Condition:  `result = importance == "high" && days_since_update >= 5`,
			Title:      "VIP 관리",
			Message:    "{clientName}님 연락 {daysSinceUpdate}일 경과",
			OncePerDay: true,
		},
		{
			ID:        primitive.NewObjectID(),
			Name:      "broken",
			Active:    true,
			Type:      notification.TypeSystemAlert,
			Condition: `result = nope`,
			Title:     "x",
			Message:   "y",
		},
	}}
	e := NewCustomRuleEvaluator(newEnv([]business.Client{vip, other}, nil), rules, zap.NewNop())
	cands, err := e.Evaluate(context.Background(), agent, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected one match, got %d", len(cands))
	}
	c := cands[0]
	if c.Metadata["clientId"] != "vip" || c.Priority != notification.PriorityHigh || c.Channel != notification.ChannelInApp {
		t.Errorf("unexpected candidate %+v", c)
	}
	if c.Message != "고객vip님 연락 5일 경과" {
		t.Errorf("message = %q", c.Message)
	}

	rules.err = errors.New("rules table unavailable")
	if _, err := e.Evaluate(context.Background(), agent, now); err == nil {
		t.Error("store error should be returned to the runner")
	}
}

func TestEvaluatorReturnsStoreError(t *testing.T) {
	env := newEnv([]business.Client{client("a", now)}, nil)
	env.Store.(*business.MemoryStore).Fail["agent-1"] = errors.New("timeout")

	if _, err := NewFollowUpEvaluator(env).Evaluate(context.Background(), agent, now); err == nil {
		t.Error("expected store error")
	}
}

func TestEmptyAgentYieldsNothing(t *testing.T) {
	env := newEnv(nil, nil)
	reg := NewRegistry(env, &stubRules{}, zap.NewNop())
	at := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC) // outside the month-end window
	for _, e := range reg.Daily {
		cands, err := e.Evaluate(context.Background(), agent, at)
		if err != nil || len(cands) != 0 {
			t.Errorf("%s: got %d candidates, err %v", e.Name(), len(cands), err)
		}
	}
}

func TestCustomRuleRecompilesEditedRule(t *testing.T) {
	vip := client("vip", now.AddDate(0, 0, -5))
	vip.Importance = business.ImportanceHigh

	rule := notification.Rule{
		ID:        primitive.NewObjectID(),
		Name:      "vip",
		Active:    true,
		Type:      notification.TypeFollowUpReminder,
		Condition: `result = importance == "low"`,
		Title:     "t",
		Message:   "m",
		UpdatedAt: now.AddDate(0, 0, -1),
	}
	rules := &stubRules{rules: []notification.Rule{rule}}
	e := NewCustomRuleEvaluator(newEnv([]business.Client{vip}, nil), rules, zap.NewNop())

	cands, err := e.Evaluate(context.Background(), agent, now)
	if err != nil || len(cands) != 0 {
		t.Fatalf("before edit: %d candidates, err %v", len(cands), err)
	}

	for i := 0; i < 3; i++ {
		rule.Condition = `result = importance == "high"`
		rule.UpdatedAt = now.Add(time.Duration(i) * time.Minute)
		rules.rules = []notification.Rule{rule}
		cands, err = e.Evaluate(context.Background(), agent, now)
		if err != nil || len(cands) != 1 {
			t.Fatalf("edit %d: %d candidates, err %v", i, len(cands), err)
		}
	}
	if n := len(e.cache); n != 1 {
		t.Errorf("cache holds %d programs for one rule, want 1", n)
	}
}
