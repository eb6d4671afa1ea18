package notification

import (
	"context"
	"time"

	"insure-crm/internal/config"
	"insure-crm/internal/metrics"

	"go.uber.org/zap"
)

// Writer is the only path from a candidate to a stored notification.
type Writer interface {
	// CreateNotification validates c, applies defaults and inserts one pending row.
	// A candidate whose dedup key is already stored returns the existing row with ErrDuplicate.
	CreateNotification(ctx context.Context, c Candidate) (*Notification, error)
}

type WriterImpl struct {
	Repo       NotificationRepository
	Logger     *zap.Logger
	MaxRetries int
	Dedup      bool
	Now        func() time.Time
}

func NewWriter(repo NotificationRepository, cfg *config.Config, logger *zap.Logger) Writer {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &WriterImpl{
		Repo:       repo,
		Logger:     logger,
		MaxRetries: maxRetries,
		Dedup:      cfg.Dedup,
		Now:        time.Now,
	}
}

func validateCandidate(c Candidate) error {
	required := []struct {
		field string
		value string
	}{
		{"user_id", c.UserID},
		{"type", string(c.Type)},
		{"channel", string(c.Channel)},
		{"title", c.Title},
		{"message", c.Message},
		{"recipient", c.Recipient},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Reason: "is required"}
		}
	}
	if !c.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "is not a known notification type"}
	}
	if !c.Channel.Valid() {
		return &ValidationError{Field: "channel", Reason: "is not a known channel"}
	}
	if c.Priority != "" && !c.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "is not a known priority"}
	}
	return nil
}

func (w *WriterImpl) CreateNotification(ctx context.Context, c Candidate) (*Notification, error) {
	if err := validateCandidate(c); err != nil {
		metrics.NotificationsRejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	now := w.Now()
	n := &Notification{
		UserID:      c.UserID,
		Type:        c.Type,
		Channel:     c.Channel,
		Priority:    c.Priority,
		Title:       c.Title,
		Message:     c.Message,
		Recipient:   c.Recipient,
		Status:      StatusPending,
		CreatedAt:   now,
		ScheduledAt: now,
		MaxRetries:  w.MaxRetries,
		Metadata:    c.Metadata,
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	if c.ScheduledAt != nil {
		n.ScheduledAt = *c.ScheduledAt
	}
	if w.Dedup {
		n.DedupKey = c.DedupKey
	}

	created, err := w.Repo.CreateIfAbsent(ctx, n)
	if err != nil {
		metrics.NotificationsRejectedTotal.WithLabelValues("store").Inc()
		return nil, storeErr("insert", queueCollection, err)
	}
	if !created {
		metrics.NotificationsDuplicateTotal.WithLabelValues(string(c.Type)).Inc()
		w.Logger.Debug("Skipped duplicate notification",
			zap.String("user_id", c.UserID),
			zap.String("type", string(c.Type)),
			zap.String("notification_id", n.ID.Hex()))
		return n, ErrDuplicate
	}

	metrics.NotificationsCreatedTotal.WithLabelValues(string(n.Type), string(n.Priority)).Inc()
	return n, nil
}
