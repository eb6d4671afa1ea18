package notification

import (
	"context"
	"fmt"
	"time"

	"insure-crm/internal/config"
	"insure-crm/pkg/condition"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	DefaultStatsDays = 30
	maxExportRows    = 5000
)

// RuleVariables are the names a rule condition may reference.
var RuleVariables = []string{
	"client",
	"importance",
	"stage",
	"stage_terminal",
	"stage_contract",
	"days_since_update",
	"days_since_stage_change",
	"days_until_birthday",
	"weekday",
	"hour",
}

// NotificationService is the read side used by the UI plus the admin operations on
// templates and rules. Every user operation is scoped to the caller's user id; an id
// that does not belong to the caller behaves as if it did not exist.
type NotificationService interface {
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) (*Notification, error)
	MarkAllRead(ctx context.Context, userID string) ([]Notification, error)
	MarkUnread(ctx context.Context, id, userID string) (*Notification, error)
	Delete(ctx context.Context, id, userID string) (*Notification, error)
	GetSettings(ctx context.Context, userID string) (*Settings, error)
	UpsertSettings(ctx context.Context, settings *Settings) (*Settings, error)
	GetStats(ctx context.Context, userID string, days int) (*Stats, error)
	History(ctx context.Context, userID string, limit int64) ([]History, error)
	ExportExcel(ctx context.Context, userID string, opts ListOptions) ([]byte, string, error)

	ListTemplates(ctx context.Context) ([]Template, error)
	UpsertTemplate(ctx context.Context, t *Template) error
	DeleteTemplate(ctx context.Context, id string) (bool, error)
	ListRules(ctx context.Context) ([]Rule, error)
	CreateRule(ctx context.Context, rule *Rule) error
	UpdateRule(ctx context.Context, id string, rule *Rule) (*Rule, error)
	DeleteRule(ctx context.Context, id string) (bool, error)
}

// TemplateListener reloads rendered message text after the templates table changes.
type TemplateListener interface {
	Refresh(ctx context.Context) error
}

type NotificationServiceImpl struct {
	Repo         NotificationRepository
	SettingsRepo SettingsRepository
	HistoryRepo  HistoryRepository
	TemplateRepo TemplateRepository
	RuleRepo     RuleRepository
	Templates    TemplateListener
	Logger       *zap.Logger
	Location     *time.Location
	Now          func() time.Time
}

func NewNotificationService(
	repo NotificationRepository,
	settings SettingsRepository,
	history HistoryRepository,
	templates TemplateRepository,
	rules RuleRepository,
	listener TemplateListener,
	cfg *config.Config,
	logger *zap.Logger,
) NotificationService {
	return &NotificationServiceImpl{
		Repo:         repo,
		SettingsRepo: settings,
		HistoryRepo:  history,
		TemplateRepo: templates,
		RuleRepo:     rules,
		Templates:    listener,
		Logger:       logger,
		Location:     cfg.Location(),
		Now:          time.Now,
	}
}

func (s *NotificationServiceImpl) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "is not a known status"}
	}
	if opts.Type != "" && !opts.Type.Valid() {
		return nil, &ValidationError{Field: "type", Reason: "is not a known notification type"}
	}
	rows, err := s.Repo.List(ctx, userID, opts.Normalize())
	return rows, storeErr("list", queueCollection, err)
}

func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.Repo.CountUnread(ctx, userID)
	return count, storeErr("count", queueCollection, err)
}

// MarkRead is idempotent: a second call leaves read_at unchanged.
func (s *NotificationServiceImpl) MarkRead(ctx context.Context, id, userID string) (*Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	n, err := s.Repo.MarkRead(ctx, objectID, userID, s.Now())
	return n, storeErr("mark_read", queueCollection, err)
}

func (s *NotificationServiceImpl) MarkAllRead(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := s.Repo.MarkAllRead(ctx, userID, s.Now())
	return rows, storeErr("mark_all_read", queueCollection, err)
}

func (s *NotificationServiceImpl) MarkUnread(ctx context.Context, id, userID string) (*Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	n, err := s.Repo.MarkUnread(ctx, objectID, userID, s.Now())
	return n, storeErr("mark_unread", queueCollection, err)
}

func (s *NotificationServiceImpl) Delete(ctx context.Context, id, userID string) (*Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	n, err := s.Repo.Delete(ctx, objectID, userID)
	return n, storeErr("delete", queueCollection, err)
}

// GetSettings never returns nil settings: users without a row get the defaults.
func (s *NotificationServiceImpl) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	settings, err := s.SettingsRepo.Get(ctx, userID)
	if err != nil {
		return nil, storeErr("get", settingsCollection, err)
	}
	if settings == nil {
		return DefaultSettings(userID), nil
	}
	return settings, nil
}

// UpsertSettings merges the given toggles over the stored (or default) settings.
func (s *NotificationServiceImpl) UpsertSettings(ctx context.Context, in *Settings) (*Settings, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	current, err := s.GetSettings(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	for c, v := range in.Channels {
		current.Channels[c] = v
	}
	for t, v := range in.Categories {
		current.Categories[t] = v
	}
	current.QuietHoursEnabled = in.QuietHoursEnabled
	current.QuietHoursStart = in.QuietHoursStart
	current.QuietHoursEnd = in.QuietHoursEnd
	current.SuppressWeekends = in.SuppressWeekends
	current.Timezone = in.Timezone
	current.UpdatedAt = s.Now()

	if err := s.SettingsRepo.Upsert(ctx, current); err != nil {
		return nil, storeErr("upsert", settingsCollection, err)
	}
	return current, nil
}

func (s *NotificationServiceImpl) GetStats(ctx context.Context, userID string, days int) (*Stats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	since := s.Now().AddDate(0, 0, -days)
	stats, err := s.Repo.Stats(ctx, userID, since)
	if err != nil {
		return nil, storeErr("stats", queueCollection, err)
	}
	stats.Days = days
	return stats, nil
}

func (s *NotificationServiceImpl) History(ctx context.Context, userID string, limit int64) ([]History, error) {
	rows, err := s.HistoryRepo.ListByUser(ctx, userID, limit)
	return rows, storeErr("list", historyCollection, err)
}

func (s *NotificationServiceImpl) ExportExcel(ctx context.Context, userID string, opts ListOptions) ([]byte, string, error) {
	opts.Limit = MaxListLimit
	opts.Offset = 0

	var rows []Notification
	for len(rows) < maxExportRows {
		page, err := s.List(ctx, userID, opts)
		if err != nil {
			return nil, "", err
		}
		rows = append(rows, page...)
		if int64(len(page)) < opts.Limit {
			break
		}
		opts.Offset += opts.Limit
	}

	data, err := writeWorkbook(rows, s.Location)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("notifications_%s.xlsx", s.Now().In(s.Location).Format("20060102"))
	return data, filename, nil
}

func (s *NotificationServiceImpl) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.TemplateRepo.List(ctx)
	return rows, storeErr("list", templateCollection, err)
}

func (s *NotificationServiceImpl) UpsertTemplate(ctx context.Context, t *Template) error {
	if t.Key == "" {
		return &ValidationError{Field: "key", Reason: "is required"}
	}
	if t.Title == "" && t.Message == "" {
		return &ValidationError{Field: "title", Reason: "title or message is required"}
	}
	if t.Locale == "" {
		t.Locale = "ko"
	}
	if err := s.TemplateRepo.Upsert(ctx, t); err != nil {
		return storeErr("upsert", templateCollection, err)
	}
	s.templatesChanged(ctx)
	return nil
}

func (s *NotificationServiceImpl) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	ok, err := s.TemplateRepo.Delete(ctx, objectID)
	if err != nil {
		return false, storeErr("delete", templateCollection, err)
	}
	if ok {
		s.templatesChanged(ctx)
	}
	return ok, nil
}

// templatesChanged reloads the listener; the template write already succeeded.
func (s *NotificationServiceImpl) templatesChanged(ctx context.Context) {
	if s.Templates == nil {
		return
	}
	if err := s.Templates.Refresh(ctx); err != nil && s.Logger != nil {
		s.Logger.Warn("Failed to reload message templates", zap.Error(err))
	}
}

func (s *NotificationServiceImpl) ListRules(ctx context.Context) ([]Rule, error) {
	rows, err := s.RuleRepo.List(ctx)
	return rows, storeErr("list", ruleCollection, err)
}

func validateRule(rule *Rule) error {
	if rule.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if !rule.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "is not a known notification type"}
	}
	if rule.Priority != "" && !rule.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "is not a known priority"}
	}
	if rule.Channel != "" && !rule.Channel.Valid() {
		return &ValidationError{Field: "channel", Reason: "is not a known channel"}
	}
	if rule.Title == "" || rule.Message == "" {
		return &ValidationError{Field: "title", Reason: "title and message are required"}
	}
	if _, err := condition.Compile(rule.Condition, RuleVariables...); err != nil {
		return &ValidationError{Field: "condition", Reason: err.Error()}
	}
	return nil
}

func (s *NotificationServiceImpl) CreateRule(ctx context.Context, rule *Rule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	return storeErr("insert", ruleCollection, s.RuleRepo.Create(ctx, rule))
}

func (s *NotificationServiceImpl) UpdateRule(ctx context.Context, id string, rule *Rule) (*Rule, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	existing, err := s.RuleRepo.Get(ctx, objectID)
	if err != nil {
		return nil, storeErr("get", ruleCollection, err)
	}
	if existing == nil {
		return nil, nil
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	if err := s.RuleRepo.Update(ctx, rule); err != nil {
		return nil, storeErr("update", ruleCollection, err)
	}
	return rule, nil
}

func (s *NotificationServiceImpl) DeleteRule(ctx context.Context, id string) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	ok, err := s.RuleRepo.Delete(ctx, objectID)
	return ok, storeErr("delete", ruleCollection, err)
}
