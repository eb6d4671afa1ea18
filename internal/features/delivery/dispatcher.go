package delivery

import (
	"context"
	"errors"
	"time"

	"insure-crm/internal/config"
	"insure-crm/internal/features/notification"
	"insure-crm/internal/metrics"

	"go.uber.org/zap"
)

const (
	baseBackoff = time.Minute
	maxBackoff  = time.Hour
)

// Dispatcher claims due rows and hands each one to the sender of its channel.
// Only pending rows are ever updated.
type Dispatcher struct {
	Repo     notification.NotificationRepository
	Settings notification.SettingsRepository
	History  notification.HistoryRepository
	Senders  map[notification.Channel]Sender
	Logger   *zap.Logger
	Batch    int
	Lease    time.Duration
	Location *time.Location
	Now      func() time.Time
}

func NewDispatcher(
	repo notification.NotificationRepository,
	settings notification.SettingsRepository,
	history notification.HistoryRepository,
	hub *notification.Hub,
	cfg *config.Config,
	logger *zap.Logger,
) *Dispatcher {
	d := &Dispatcher{
		Repo:     repo,
		Settings: settings,
		History:  history,
		Senders:  map[notification.Channel]Sender{},
		Logger:   logger,
		Batch:    cfg.DispatchBatch,
		Lease:    cfg.DispatchLease,
		Location: cfg.Location(),
		Now:      time.Now,
	}
	d.Register(&InAppSender{Hub: hub})

	switch {
	case cfg.SendGridAPIKey != "":
		d.Register(NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFrom))
	case cfg.SMTPHost != "":
		d.Register(NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}))
	default:
		logger.Info("No email provider configured, email notifications will fail")
	}

	if cfg.TwilioAccountSID != "" {
		d.Register(NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.SMSDefaultRegion))
	} else {
		logger.Info("Twilio not configured, sms notifications will fail")
	}
	return d
}

func (d *Dispatcher) Register(s Sender) {
	d.Senders[s.Channel()] = s
}

// Backoff is the delay before retry number attempt (1-based).
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := baseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// DispatchDue processes up to Batch due rows and returns how many it handled.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	batch := d.Batch
	if batch <= 0 {
		batch = 100
	}
	lease := d.Lease
	if lease <= 0 {
		lease = 2 * time.Minute
	}
	settings := map[string]*notification.Settings{}

	var errs []error
	processed := 0
	for processed < batch {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		now := d.Now()
		n, err := d.Repo.ClaimDue(ctx, now, lease)
		if err != nil {
			errs = append(errs, err)
			break
		}
		if n == nil {
			break
		}
		processed++

		st, ok := settings[n.UserID]
		if !ok {
			st, err = d.Settings.Get(ctx, n.UserID)
			if err != nil {
				// the lease expires and the row is retried on a later tick
				d.Logger.Warn("Failed to load notification settings",
					zap.String("user_id", n.UserID), zap.Error(err))
				errs = append(errs, err)
				continue
			}
			if st == nil {
				st = notification.DefaultSettings(n.UserID)
			}
			settings[n.UserID] = st
		}

		if err := d.process(ctx, n, st, now); err != nil {
			d.Logger.Error("Failed to record delivery outcome",
				zap.String("notification_id", n.ID.Hex()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return processed, errors.Join(errs...)
}

func (d *Dispatcher) process(ctx context.Context, n *notification.Notification, st *notification.Settings, now time.Time) error {
	switch {
	case !st.TypeEnabled(n.Type):
		return d.cancel(ctx, n, "category disabled by user", now)
	case !st.ChannelEnabled(n.Channel):
		return d.cancel(ctx, n, "channel disabled by user", now)
	}

	if n.Channel != notification.ChannelInApp {
		if at := st.DeferUntil(now, d.Location); at.After(now) {
			return d.Repo.Reschedule(ctx, n.ID, at, n.RetryCount, "")
		}
	}

	err := d.send(ctx, n)
	if err == nil {
		if err := d.Repo.MarkDelivered(ctx, n.ID, now); err != nil {
			return err
		}
		metrics.DeliveriesTotal.WithLabelValues(string(n.Channel), string(notification.StatusDelivered)).Inc()
		return d.record(ctx, n, notification.StatusDelivered, n.RetryCount+1, "", now)
	}

	attempts := n.RetryCount + 1
	maxRetries := n.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	logger := d.Logger.With(
		zap.String("notification_id", n.ID.Hex()),
		zap.String("channel", string(n.Channel)),
		zap.Int("attempt", attempts),
		zap.Error(err))

	if IsPermanent(err) || errors.Is(err, ErrNoSender) || attempts >= maxRetries {
		logger.Warn("Notification delivery failed")
		if err := d.Repo.MarkFailed(ctx, n.ID, attempts, err.Error()); err != nil {
			return err
		}
		metrics.DeliveriesTotal.WithLabelValues(string(n.Channel), string(notification.StatusFailed)).Inc()
		return d.record(ctx, n, notification.StatusFailed, attempts, err.Error(), now)
	}

	logger.Info("Notification delivery will be retried")
	metrics.DeliveriesTotal.WithLabelValues(string(n.Channel), "retry").Inc()
	return d.Repo.Reschedule(ctx, n.ID, now.Add(Backoff(attempts)), attempts, err.Error())
}

func (d *Dispatcher) send(ctx context.Context, n *notification.Notification) error {
	sender, ok := d.Senders[n.Channel]
	if !ok {
		return ErrNoSender
	}
	start := time.Now()
	defer func() {
		metrics.DeliveryDuration.WithLabelValues(string(n.Channel)).Observe(time.Since(start).Seconds())
	}()

	delivered := *n
	delivered.Status = notification.StatusDelivered
	return sender.Send(ctx, &delivered)
}

func (d *Dispatcher) cancel(ctx context.Context, n *notification.Notification, reason string, now time.Time) error {
	if err := d.Repo.Cancel(ctx, n.ID, reason); err != nil {
		return err
	}
	metrics.DeliveriesTotal.WithLabelValues(string(n.Channel), string(notification.StatusCancelled)).Inc()
	return d.record(ctx, n, notification.StatusCancelled, n.RetryCount, reason, now)
}

func (d *Dispatcher) record(ctx context.Context, n *notification.Notification, status notification.Status, attempts int, errMsg string, now time.Time) error {
	return d.History.Insert(ctx, &notification.History{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Channel:        n.Channel,
		Status:         status,
		Attempts:       attempts,
		ErrorMessage:   errMsg,
		OccurredAt:     now,
	})
}
