package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insure-crm/internal/config"
	"insure-crm/internal/features/events"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Dispatcher hands due notifications to their channels.
type Dispatcher interface {
	DispatchDue(ctx context.Context) (int, error)
}

// Scheduler owns the cron entries for the daily batch, the meeting batch and the dispatcher tick.
type Scheduler struct {
	runner     *Runner
	dispatcher Dispatcher
	cfg        *config.Config
	logger     *zap.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(runner *Runner, dispatcher Dispatcher, cfg *config.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *Scheduler) Start() error {
	cronLog := cron.PrintfLogger(zap.NewStdLog(s.logger))
	s.cron = cron.New(
		cron.WithLocation(s.cfg.Location()),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	jobs := []struct {
		name     string
		schedule string
		fn       func()
	}{
		{"daily", s.cfg.DailySchedule, s.daily},
		{"meeting", s.cfg.MeetingSchedule, s.meetings},
		{"dispatch", s.cfg.DispatchSchedule, s.dispatch},
	}
	for _, job := range jobs {
		if job.schedule == "" || job.schedule == "off" {
			s.logger.Info("Scheduler job disabled", zap.String("job", job.name))
			continue
		}
		if _, err := s.cron.AddFunc(job.schedule, job.fn); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", job.name, job.schedule, err)
		}
		s.logger.Info("Scheduler job registered", zap.String("job", job.name), zap.String("schedule", job.schedule))
	}

	s.cron.Start()
	return nil
}

// Stop cancels in-flight runs and waits for running jobs to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) daily() {
	s.runBatch("daily", s.runner.RunDailyNotificationTriggers)
}

func (s *Scheduler) meetings() {
	s.runBatch("meeting", s.runner.RunMeetingReminders)
}

func (s *Scheduler) runBatch(name string, fn func(context.Context) (*TriggerRun, error)) {
	ctx, cancel := context.WithTimeout(s.ctx, lockTTL[RunKind(name)])
	defer cancel()
	if _, err := fn(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Info("Skipping batch, another replica holds the lock", zap.String("job", name))
			return
		}
		s.logger.Error("Scheduled batch failed", zap.String("job", name), zap.Error(err))
	}
}

func (s *Scheduler) dispatch() {
	if s.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()
	n, err := s.dispatcher.DispatchDue(ctx)
	if err != nil {
		s.logger.Error("Dispatch tick failed", zap.Int("processed", n), zap.Error(err))
	}
}

// StartScheduler ties the scheduler to the fx lifecycle.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: s.Stop,
	})
}

// RegisterRealtime subscribes the realtime hooks to the bus.
func RegisterRealtime(bus events.Bus, hooks *RealtimeTriggers) {
	hooks.Register(bus)
}
