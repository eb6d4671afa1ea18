package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memorySettings struct {
	rows map[string]*Settings
}

func (m *memorySettings) Get(ctx context.Context, userID string) (*Settings, error) {
	return m.rows[userID], nil
}

func (m *memorySettings) Upsert(ctx context.Context, s *Settings) error {
	m.rows[s.UserID] = s
	return nil
}

type memoryHistory struct{ rows []History }

func (m *memoryHistory) Insert(ctx context.Context, h *History) error {
	m.rows = append(m.rows, *h)
	return nil
}

func (m *memoryHistory) ListByUser(ctx context.Context, userID string, limit int64) ([]History, error) {
	var out []History
	for _, h := range m.rows {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memoryRules struct{ rows []Rule }

func (m *memoryRules) List(ctx context.Context) ([]Rule, error) { return m.rows, nil }
func (m *memoryRules) ListActive(ctx context.Context, agentID string) ([]Rule, error) {
	return m.rows, nil
}
func (m *memoryRules) Get(ctx context.Context, id primitive.ObjectID) (*Rule, error) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			return &m.rows[i], nil
		}
	}
	return nil, nil
}
func (m *memoryRules) Create(ctx context.Context, rule *Rule) error {
	rule.ID = primitive.NewObjectID()
	m.rows = append(m.rows, *rule)
	return nil
}
func (m *memoryRules) Update(ctx context.Context, rule *Rule) error { return nil }
func (m *memoryRules) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return false, nil
}

type serviceFixture struct {
	svc  *NotificationServiceImpl
	repo *MemoryRepository
	now  time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{repo: NewMemoryRepository(), now: fixedNow}
	f.svc = &NotificationServiceImpl{
		Repo:         f.repo,
		SettingsRepo: &memorySettings{rows: map[string]*Settings{}},
		HistoryRepo:  &memoryHistory{},
		RuleRepo:     &memoryRules{},
		Location:     time.UTC,
		Now:          func() time.Time { return f.now },
	}
	return f
}

func (f *serviceFixture) seed(t *testing.T, userID string, age time.Duration) *Notification {
	t.Helper()
	n := &Notification{
		UserID:    userID,
		Type:      TypeFollowUpReminder,
		Channel:   ChannelInApp,
		Priority:  PriorityNormal,
		Title:     "팔로업",
		Message:   "연락이 필요합니다",
		Recipient: userID,
		Status:    StatusDelivered,
		CreatedAt: f.now.Add(-age),
	}
	if err := f.repo.Create(context.Background(), n); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return n
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	n := f.seed(t, "agent-1", time.Hour)

	first, err := f.svc.MarkRead(ctx, n.ID.Hex(), "agent-1")
	if err != nil || first == nil {
		t.Fatalf("first mark read: %v %v", first, err)
	}
	if first.Status != StatusRead || first.ReadAt == nil || !first.ReadAt.Equal(fixedNow) {
		t.Fatalf("unexpected state after mark read: %+v", first)
	}

	f.now = fixedNow.Add(time.Hour)
	second, err := f.svc.MarkRead(ctx, n.ID.Hex(), "agent-1")
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if !second.ReadAt.Equal(*first.ReadAt) {
		t.Errorf("read_at changed on second call: %v -> %v", first.ReadAt, second.ReadAt)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	n := f.seed(t, "agent-1", time.Hour)

	rows, _ := f.svc.List(ctx, "agent-2", ListOptions{})
	if len(rows) != 0 {
		t.Errorf("agent-2 sees %d of agent-1's rows", len(rows))
	}

	if got, _ := f.svc.MarkRead(ctx, n.ID.Hex(), "agent-2"); got != nil {
		t.Error("mark read by another user should be a no-op")
	}
	if got, _ := f.svc.Delete(ctx, n.ID.Hex(), "agent-2"); got != nil {
		t.Error("delete by another user should be a no-op")
	}

	stored, _ := f.repo.GetByID(ctx, n.ID, "agent-1")
	if stored == nil || stored.IsRead {
		t.Error("agent-1's row must be untouched")
	}
}

func TestUnreadCountMatchesList(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.seed(t, "agent-1", time.Duration(i)*time.Hour)
	}
	rows, _ := f.svc.List(ctx, "agent-1", ListOptions{})
	f.svc.MarkRead(ctx, rows[0].ID.Hex(), "agent-1")
	f.svc.MarkRead(ctx, rows[1].ID.Hex(), "agent-1")

	count, err := f.svc.UnreadCount(ctx, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	unread, _ := f.svc.List(ctx, "agent-1", ListOptions{UnreadOnly: true, Limit: MaxListLimit})
	if count != int64(len(unread)) || count != 3 {
		t.Errorf("unread count %d, unread list %d, want 3", count, len(unread))
	}
}

func TestListOrdersUnreadFirstThenNewest(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	oldest := f.seed(t, "agent-1", 3*time.Hour)
	middle := f.seed(t, "agent-1", 2*time.Hour)
	newest := f.seed(t, "agent-1", time.Hour)
	f.svc.MarkRead(ctx, newest.ID.Hex(), "agent-1")

	rows, _ := f.svc.List(ctx, "agent-1", ListOptions{})
	want := []primitive.ObjectID{middle.ID, oldest.ID, newest.ID}
	for i, id := range want {
		if rows[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, rows[i].ID.Hex(), id.Hex())
		}
	}
}

func TestMarkAllReadAndUnread(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	a := f.seed(t, "agent-1", time.Hour)
	f.seed(t, "agent-1", 2*time.Hour)
	f.seed(t, "agent-2", time.Hour)

	updated, err := f.svc.MarkAllRead(ctx, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 2 {
		t.Errorf("updated %d rows, want 2", len(updated))
	}
	if c, _ := f.svc.UnreadCount(ctx, "agent-2"); c != 1 {
		t.Errorf("agent-2 unread = %d, want 1", c)
	}

	n, err := f.svc.MarkUnread(ctx, a.ID.Hex(), "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	if n.ReadAt != nil || n.Status != StatusDelivered || n.IsRead {
		t.Errorf("mark unread left %+v", n)
	}
}

func TestInvalidIDIsNoop(t *testing.T) {
	f := newServiceFixture(t)
	n, err := f.svc.MarkRead(context.Background(), "not-an-id", "agent-1")
	if n != nil || err != nil {
		t.Errorf("expected nil, nil; got %v, %v", n, err)
	}
}

func TestListRejectsUnknownFilter(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.List(context.Background(), "agent-1", ListOptions{Status: "archived"})
	if !IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGetStatsCountsTrailingWindow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.seed(t, "agent-1", 24*time.Hour)
	f.seed(t, "agent-1", 40*24*time.Hour)

	stats, err := f.svc.GetStats(ctx, "agent-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Days != DefaultStatsDays || stats.Total != 1 {
		t.Errorf("days=%d total=%d, want 30/1", stats.Days, stats.Total)
	}
	if stats.ByType[string(TypeFollowUpReminder)] != 1 || stats.ByChannel[string(ChannelInApp)] != 1 {
		t.Errorf("breakdown wrong: %+v", stats)
	}
}

func TestSettingsDefaultsAndMerge(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	s, err := f.svc.GetSettings(ctx, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	if !s.ChannelEnabled(ChannelSMS) || !s.TypeEnabled(TypeBirthdayReminder) {
		t.Error("defaults should enable everything")
	}

	saved, err := f.svc.UpsertSettings(ctx, &Settings{
		UserID:   "agent-1",
		Channels: map[Channel]bool{ChannelSMS: false},
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ChannelEnabled(ChannelSMS) || !saved.ChannelEnabled(ChannelEmail) {
		t.Errorf("merge wrong: %+v", saved.Channels)
	}

	_, err = f.svc.UpsertSettings(ctx, &Settings{UserID: "agent-1", QuietHoursEnabled: true, QuietHoursStart: "25:00", QuietHoursEnd: "07:00"})
	if !IsValidation(err) {
		t.Errorf("expected validation error for bad quiet hours, got %v", err)
	}
}

func TestCreateRuleCompilesCondition(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	rule := &Rule{
		Name:      "vip idle",
		Active:    true,
		Type:      TypeFollowUpReminder,
		Condition: `result = importance == "high" && days_since_update >= 5`,
		Title:     "VIP 고객 관리",
		Message:   "{clientName}님과 연락한 지 {daysSinceUpdate}일이 지났습니다",
	}
	if err := f.svc.CreateRule(ctx, rule); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	bad := *rule
	bad.Condition = `result = unknown_field > 3`
	err := f.svc.CreateRule(ctx, &bad)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "condition" {
		t.Errorf("expected condition validation error, got %v", err)
	}
}

func TestExportExcelProducesWorkbook(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "agent-1", time.Hour)

	data, filename, err := f.svc.ExportExcel(context.Background(), "agent-1", ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if filename != "notifications_20260310.xlsx" {
		t.Errorf("filename = %s", filename)
	}
	// xlsx files are zip archives
	if len(data) < 4 || string(data[:2]) != "PK" {
		t.Error("export is not an xlsx archive")
	}
}

type memoryTemplates struct {
	rows    []Template
	failErr error
}

func (m *memoryTemplates) List(ctx context.Context) ([]Template, error) { return m.rows, nil }
func (m *memoryTemplates) ListActive(ctx context.Context, locale string) ([]Template, error) {
	return m.rows, nil
}
func (m *memoryTemplates) Upsert(ctx context.Context, t *Template) error {
	if m.failErr != nil {
		return m.failErr
	}
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	m.rows = append(m.rows, *t)
	return nil
}
func (m *memoryTemplates) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type countingListener struct{ refreshes int }

func (l *countingListener) Refresh(ctx context.Context) error {
	l.refreshes++
	return nil
}

func TestTemplateChangesReloadListener(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	templates := &memoryTemplates{}
	listener := &countingListener{}
	f.svc.TemplateRepo = templates
	f.svc.Templates = listener

	if err := f.svc.UpsertTemplate(ctx, &Template{Title: "no key"}); err == nil {
		t.Fatal("expected validation error")
	}
	if listener.refreshes != 0 {
		t.Errorf("rejected template reloaded the listener")
	}

	tpl := &Template{Key: "birthday.today", Title: "생일 축하", Active: true}
	if err := f.svc.UpsertTemplate(ctx, tpl); err != nil {
		t.Fatal(err)
	}
	if listener.refreshes != 1 {
		t.Errorf("after upsert: %d reloads, want 1", listener.refreshes)
	}

	if ok, err := f.svc.DeleteTemplate(ctx, primitive.NewObjectID().Hex()); ok || err != nil {
		t.Fatalf("delete of unknown id: ok=%v err=%v", ok, err)
	}
	if ok, err := f.svc.DeleteTemplate(ctx, tpl.ID.Hex()); !ok || err != nil {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if listener.refreshes != 2 {
		t.Errorf("after delete: %d reloads, want 2", listener.refreshes)
	}

	templates.failErr = errors.New("write failed")
	if err := f.svc.UpsertTemplate(ctx, &Template{Key: "k", Title: "t"}); !IsStore(err) {
		t.Errorf("expected store error, got %v", err)
	}
	if listener.refreshes != 2 {
		t.Errorf("failed write reloaded the listener")
	}
}
