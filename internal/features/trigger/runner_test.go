package trigger

import (
	"context"
	"errors"
	"testing"
	"time"

	"insure-crm/internal/config"
	"insure-crm/internal/features/business"
	"insure-crm/internal/features/evaluator"
	"insure-crm/internal/features/notification"

	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

type fixture struct {
	store  *business.MemoryStore
	repo   *notification.MemoryRepository
	runs   *MemoryRunRepository
	env    *evaluator.Env
	runner *Runner
}

func newFixture(f business.Fixtures, daily ...func(env *evaluator.Env) evaluator.Evaluator) *fixture {
	store := business.NewMemoryStore(f)
	env := &evaluator.Env{Store: store, Messages: evaluator.NewCatalog(nil), Location: time.UTC}
	registry := &evaluator.Registry{Meeting: evaluator.NewMeetingReminderEvaluator(env)}
	for _, mk := range daily {
		registry.Daily = append(registry.Daily, mk(env))
	}
	registry.Realtime = evaluator.NewRealtime(env, registry.Meeting)

	repo := notification.NewMemoryRepository()
	writer := notification.NewWriter(repo, &config.Config{Dedup: true, MaxRetries: 3}, zap.NewNop())
	runs := NewMemoryRunRepository()
	runner := NewRunner(store, registry, env.Messages, writer, runs, NewLocalLocker(), &config.Config{Concurrency: 2}, zap.NewNop())
	runner.Now = func() time.Time { return fixedNow }
	return &fixture{store: store, repo: repo, runs: runs, env: env, runner: runner}
}

func birthday(env *evaluator.Env) evaluator.Evaluator { return evaluator.NewBirthdayEvaluator(env) }

type panicEvaluator struct{}

func (panicEvaluator) Name() string { return "broken" }
func (panicEvaluator) Evaluate(ctx context.Context, agent business.Agent, now time.Time) ([]notification.Candidate, error) {
	panic("nil map")
}

func twoAgents() business.Fixtures {
	return business.Fixtures{
		Agents: []business.Agent{
			{ID: "a1", Name: "김설계", Active: true},
			{ID: "a2", Name: "이설계", Active: true},
			{ID: "a3", Name: "퇴사자", Active: false},
		},
		Clients: []business.Client{
			{ID: "c1", AgentID: "a1", Name: "홍길동", BirthDate: ptr(time.Date(1980, 3, 10, 0, 0, 0, 0, time.UTC)), UpdatedAt: fixedNow},
			{ID: "c2", AgentID: "a2", Name: "성춘향", BirthDate: ptr(time.Date(1990, 3, 11, 0, 0, 0, 0, time.UTC)), UpdatedAt: fixedNow},
		},
	}
}

func TestDailyRunIsolatesFailingAgent(t *testing.T) {
	fx := newFixture(twoAgents(), birthday)
	fx.store.Fail["a2"] = errors.New("connection reset")

	run, err := fx.runner.RunDailyNotificationTriggers(context.Background())
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if run.Status != StatusPartiallyFailed {
		t.Errorf("status %s, want %s", run.Status, StatusPartiallyFailed)
	}
	if run.AgentsTotal != 2 || run.AgentsFailed != 1 {
		t.Errorf("agents total=%d failed=%d", run.AgentsTotal, run.AgentsFailed)
	}
	if run.NotificationsCreated != 1 {
		t.Errorf("created %d, want 1", run.NotificationsCreated)
	}
	if failed := run.Failed(); len(failed) != 1 || failed[0] != "a2" {
		t.Errorf("failed agents %v, want [a2]", failed)
	}

	rows := fx.repo.All()
	if len(rows) != 1 || rows[0].UserID != "a1" {
		t.Fatalf("rows %+v", rows)
	}

	logged, _ := fx.runs.List(context.Background(), KindDaily, 10)
	if len(logged) != 1 || logged[0].Status != StatusPartiallyFailed || logged[0].FinishedAt == nil {
		t.Errorf("run log %+v", logged)
	}
}

func TestDailyRunIsIdempotent(t *testing.T) {
	fx := newFixture(twoAgents(), birthday)

	first, err := fx.runner.RunDailyNotificationTriggers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := fx.runner.RunDailyNotificationTriggers(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if first.NotificationsCreated != 2 || first.Status != StatusCompleted {
		t.Errorf("first run: %+v", first)
	}
	if second.NotificationsCreated != 0 || second.DuplicatesSkipped != 2 {
		t.Errorf("second run created=%d skipped=%d", second.NotificationsCreated, second.DuplicatesSkipped)
	}
	if n := len(fx.repo.All()); n != 2 {
		t.Errorf("store has %d rows, want 2", n)
	}
}

func TestEvaluatorPanicDoesNotStopSiblings(t *testing.T) {
	fx := newFixture(twoAgents(), birthday, func(*evaluator.Env) evaluator.Evaluator { return panicEvaluator{} })

	run, err := fx.runner.RunDailyNotificationTriggers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.NotificationsCreated != 2 {
		t.Errorf("created %d, want 2", run.NotificationsCreated)
	}
	if run.Status != StatusPartiallyFailed || len(run.Errors) != 2 {
		t.Errorf("status %s errors %+v", run.Status, run.Errors)
	}
	for _, e := range run.Errors {
		if e.Evaluator != "broken" {
			t.Errorf("unexpected error entry %+v", e)
		}
	}
}

func TestWriteFailuresAreCounted(t *testing.T) {
	fx := newFixture(twoAgents(), birthday)
	fx.repo.FailCreate = errors.New("write concern timeout")

	run, err := fx.runner.RunDailyNotificationTriggers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.NotificationsCreated != 0 || run.CandidatesRejected != 2 {
		t.Errorf("created=%d rejected=%d", run.NotificationsCreated, run.CandidatesRejected)
	}
	if run.Status != StatusPartiallyFailed {
		t.Errorf("status %s", run.Status)
	}
}

func TestRunRefusesWhileLocked(t *testing.T) {
	fx := newFixture(twoAgents(), birthday)
	unlock, ok, _ := fx.runner.Locker.TryLock(context.Background(), "notification-trigger:daily", time.Minute)
	if !ok {
		t.Fatal("could not take the lock")
	}

	if _, err := fx.runner.RunDailyNotificationTriggers(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("got %v, want ErrRunInProgress", err)
	}
	// meeting runs use their own key
	if _, err := fx.runner.RunMeetingReminders(context.Background()); err != nil {
		t.Errorf("meeting run blocked: %v", err)
	}

	unlock()
	if _, err := fx.runner.RunDailyNotificationTriggers(context.Background()); err != nil {
		t.Errorf("run after unlock: %v", err)
	}
}

func TestCancelledRunStopsBeforeAgents(t *testing.T) {
	fx := newFixture(twoAgents(), birthday)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := fx.runner.RunDailyNotificationTriggers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusCancelled || run.NotificationsCreated != 0 {
		t.Errorf("status %s created %d", run.Status, run.NotificationsCreated)
	}
}

func TestMeetingRun(t *testing.T) {
	f := twoAgents()
	f.Meetings = []business.Meeting{
		{ID: "m1", AgentID: "a1", Title: "상담", ScheduledAt: fixedNow.Add(55 * time.Minute), Status: business.MeetingScheduled},
		{ID: "m2", AgentID: "a2", Title: "서명", ScheduledAt: fixedNow.Add(3 * time.Hour), Status: business.MeetingScheduled},
	}
	fx := newFixture(f, birthday)

	run, err := fx.runner.RunMeetingReminders(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Kind != KindMeeting || run.NotificationsCreated != 1 {
		t.Errorf("run %+v", run)
	}
	rows := fx.repo.All()
	if len(rows) != 1 || rows[0].Type != notification.TypeMeetingReminder || rows[0].Priority != notification.PriorityHigh {
		t.Errorf("rows %+v", rows)
	}
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	unlock, ok, err := l.TryLock(context.Background(), "k", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first lock: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := l.TryLock(context.Background(), "k", time.Minute); ok {
		t.Error("second lock should fail while held")
	}
	unlock()
	unlock()
	if _, ok, _ := l.TryLock(context.Background(), "k", time.Minute); !ok {
		t.Error("lock should be free after unlock")
	}
}
