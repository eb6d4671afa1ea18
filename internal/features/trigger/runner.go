// Package trigger runs the evaluators on a schedule or in response to domain
// events and hands their candidates to the notification writer.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"insure-crm/internal/config"
	"insure-crm/internal/features/business"
	"insure-crm/internal/features/evaluator"
	"insure-crm/internal/features/notification"
	"insure-crm/internal/metrics"
	"insure-crm/internal/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrRunInProgress = errors.New("a trigger run of this kind is already in progress")

var lockTTL = map[RunKind]time.Duration{
	KindDaily:   30 * time.Minute,
	KindMeeting: 4 * time.Minute,
}

type Runner struct {
	Store       business.Store
	Registry    *evaluator.Registry
	Catalog     *evaluator.Catalog
	Writer      notification.Writer
	Runs        RunRepository
	Locker      Locker
	Logger      *zap.Logger
	Concurrency int
	Now         func() time.Time

	tracer trace.Tracer
}

func NewRunner(
	store business.Store,
	registry *evaluator.Registry,
	catalog *evaluator.Catalog,
	writer notification.Writer,
	runs RunRepository,
	locker Locker,
	cfg *config.Config,
	logger *zap.Logger,
) *Runner {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Runner{
		Store:       store,
		Registry:    registry,
		Catalog:     catalog,
		Writer:      writer,
		Runs:        runs,
		Locker:      locker,
		Logger:      logger,
		Concurrency: concurrency,
		Now:         time.Now,
		tracer:      otel.Tracer(tracing.TracerName),
	}
}

// RunDailyNotificationTriggers evaluates every daily rule for every active agent.
// A failing agent never stops the others; the run then ends partially failed.
func (r *Runner) RunDailyNotificationTriggers(ctx context.Context) (*TriggerRun, error) {
	return r.run(ctx, KindDaily, r.Registry.Daily)
}

// RunMeetingReminders evaluates only the meeting reminder windows.
func (r *Runner) RunMeetingReminders(ctx context.Context) (*TriggerRun, error) {
	return r.run(ctx, KindMeeting, []evaluator.Evaluator{r.Registry.Meeting})
}

// agentResult is what one agent contributes to the run totals.
type agentResult struct {
	created  int
	skipped  int
	rejected int
	errors   []RunError
}

func (r *Runner) run(ctx context.Context, kind RunKind, evals []evaluator.Evaluator) (*TriggerRun, error) {
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracing.TracerName)
	}
	if r.Locker != nil {
		unlock, ok, err := r.Locker.TryLock(ctx, "notification-trigger:"+string(kind), lockTTL[kind])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrRunInProgress
		}
		defer unlock()
	}

	now := r.Now()
	run := &TriggerRun{
		RunID:     uuid.NewString(),
		Kind:      kind,
		Status:    StatusRunning,
		StartedAt: now,
	}
	logger := r.Logger.With(zap.String("run_id", run.RunID), zap.String("kind", string(kind)))

	ctx, span := r.tracer.Start(ctx, "notification-trigger."+string(kind),
		trace.WithAttributes(attribute.String("run.id", run.RunID)))
	defer span.End()

	if r.Catalog != nil {
		if err := r.Catalog.Refresh(ctx); err != nil {
			logger.Warn("Template refresh failed, using previous messages", zap.Error(err))
		}
	}
	if err := r.Runs.Create(ctx, run); err != nil {
		logger.Warn("Failed to write run log", zap.Error(err))
	}

	agents, err := r.Store.ListActiveAgents(ctx)
	if err != nil {
		run.Errors = append(run.Errors, RunError{Message: err.Error()})
		r.finish(ctx, run, StatusPartiallyFailed, logger)
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent enumeration failed")
		return run, fmt.Errorf("failed to list active agents: %w", err)
	}
	run.AgentsTotal = len(agents)
	span.SetAttributes(attribute.Int("run.agents", len(agents)))

	var (
		mu        sync.Mutex
		cancelled bool
	)
	g := new(errgroup.Group)
	g.SetLimit(r.Concurrency)
	for _, agent := range agents {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		g.Go(func() error {
			res := r.runAgent(ctx, agent, evals, now, logger)
			mu.Lock()
			defer mu.Unlock()
			run.NotificationsCreated += res.created
			run.DuplicatesSkipped += res.skipped
			run.CandidatesRejected += res.rejected
			if len(res.errors) > 0 {
				run.AgentsFailed++
				run.Errors = append(run.Errors, res.errors...)
			}
			return nil
		})
	}
	_ = g.Wait()

	status := StatusCompleted
	switch {
	case cancelled:
		status = StatusCancelled
	case len(run.Errors) > 0:
		status = StatusPartiallyFailed
	}
	r.finish(ctx, run, status, logger)
	if status != StatusCompleted {
		span.SetStatus(codes.Error, string(status))
	}
	return run, nil
}

func (r *Runner) finish(ctx context.Context, run *TriggerRun, status RunStatus, logger *zap.Logger) {
	finished := r.Now()
	run.Status = status
	run.FinishedAt = &finished
	metrics.TriggerRunsTotal.WithLabelValues(string(run.Kind), string(status)).Inc()

	// the caller's context may already be cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := r.Runs.Update(ctx, run); err != nil {
		logger.Warn("Failed to update run log", zap.Error(err))
	}

	logger.Info("Notification trigger run finished",
		zap.String("status", string(status)),
		zap.Int("agents", run.AgentsTotal),
		zap.Int("agents_failed", run.AgentsFailed),
		zap.Int("created", run.NotificationsCreated),
		zap.Int("duplicates", run.DuplicatesSkipped),
		zap.Int("rejected", run.CandidatesRejected),
		zap.Duration("took", finished.Sub(run.StartedAt)))
}

type evalOutcome struct {
	name  string
	cands []notification.Candidate
	err   error
}

// runAgent runs every evaluator for one agent and waits for all of them,
// then writes the candidates of the ones that succeeded.
func (r *Runner) runAgent(ctx context.Context, agent business.Agent, evals []evaluator.Evaluator, now time.Time, logger *zap.Logger) agentResult {
	ctx, span := r.tracer.Start(ctx, "notification-trigger.agent",
		trace.WithAttributes(attribute.String("agent.id", agent.ID)))
	defer span.End()

	outcomes := make([]evalOutcome, len(evals))
	var wg sync.WaitGroup
	for i, ev := range evals {
		wg.Add(1)
		go func(i int, ev evaluator.Evaluator) {
			defer wg.Done()
			outcomes[i] = evaluate(ctx, ev, agent, now)
		}(i, ev)
	}
	wg.Wait()

	var res agentResult
	for _, o := range outcomes {
		if o.err != nil {
			span.RecordError(o.err)
			logger.Error("Evaluator failed",
				zap.String("agent_id", agent.ID),
				zap.String("evaluator", o.name),
				zap.Error(o.err))
			res.errors = append(res.errors, RunError{AgentID: agent.ID, Evaluator: o.name, Message: o.err.Error()})
			continue
		}
		for _, cand := range o.cands {
			_, err := r.Writer.CreateNotification(ctx, cand)
			switch {
			case err == nil:
				res.created++
			case errors.Is(err, notification.ErrDuplicate):
				res.skipped++
			default:
				res.rejected++
				logger.Warn("Candidate not written",
					zap.String("agent_id", agent.ID),
					zap.String("evaluator", o.name),
					zap.String("type", string(cand.Type)),
					zap.Error(err))
				if notification.IsStore(err) {
					res.errors = append(res.errors, RunError{AgentID: agent.ID, Evaluator: o.name, Message: err.Error()})
				}
			}
		}
	}
	if len(res.errors) > 0 {
		span.SetStatus(codes.Error, "agent had failures")
	}
	return res
}

func evaluate(ctx context.Context, ev evaluator.Evaluator, agent business.Agent, now time.Time) (out evalOutcome) {
	out.name = ev.Name()
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out.cands, out.err = nil, fmt.Errorf("evaluator panic: %v", p)
		}
		result := "ok"
		if out.err != nil {
			result = "error"
		}
		metrics.EvaluatorRunsTotal.WithLabelValues(out.name, result).Inc()
		metrics.EvaluatorDuration.WithLabelValues(out.name).Observe(time.Since(start).Seconds())
	}()
	out.cands, out.err = ev.Evaluate(ctx, agent, now)
	return out
}
