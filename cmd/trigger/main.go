// Command trigger runs one notification batch and exits.
//
//	trigger -mode daily
//	trigger -mode meeting -dry-run -fixtures testdata/agents.json
//
// With -dry-run the batch reads agents from the fixture file and keeps the
// generated notifications in memory; they are printed as JSON instead of stored.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"insure-crm/internal/config"
	"insure-crm/internal/database"
	"insure-crm/internal/features/business"
	"insure-crm/internal/features/evaluator"
	"insure-crm/internal/features/notification"
	"insure-crm/internal/features/trigger"
	"insure-crm/internal/logger"
	"insure-crm/internal/metrics"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type options struct {
	mode     string
	dryRun   bool
	fixtures string
	timeout  time.Duration
}

func runBatch(ctx context.Context, runner *trigger.Runner, mode string) (*trigger.TriggerRun, error) {
	switch mode {
	case "daily":
		return runner.RunDailyNotificationTriggers(ctx)
	case "meeting":
		return runner.RunMeetingReminders(ctx)
	default:
		return nil, fmt.Errorf("unknown mode %q, want daily or meeting", mode)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// dryRun evaluates the fixture agents without touching any database.
func dryRun(cfg *config.Config, opts options) error {
	log := logger.NewConsoleLogger(cfg)
	defer log.Sync()

	store, err := business.LoadFixtures(opts.fixtures)
	if err != nil {
		return err
	}
	catalog := evaluator.NewCatalog(nil)
	env := evaluator.NewEnv(store, catalog, cfg)
	registry := evaluator.NewRegistry(env, nil, log)
	repo := notification.NewMemoryRepository()
	writer := notification.NewWriter(repo, cfg, log)
	runner := trigger.NewRunner(store, registry, catalog, writer, trigger.NewMemoryRunRepository(), trigger.NewLocalLocker(), cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()
	run, err := runBatch(ctx, runner, opts.mode)
	if err != nil {
		return err
	}
	printJSON(map[string]interface{}{
		"run":           run,
		"notifications": repo.All(),
	})
	return nil
}

// RunOnce executes the batch against the configured stores and stops the app.
func RunOnce(lc fx.Lifecycle, runner *trigger.Runner, opts options, logger *zap.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				exitCode := 0
				defer func() {
					if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
				defer cancel()
				run, err := runBatch(ctx, runner, opts.mode)
				if err != nil {
					logger.Error("Trigger run failed", zap.String("mode", opts.mode), zap.Error(err))
					exitCode = 1
				}
				if run != nil {
					printJSON(run)
					if run.Status != trigger.StatusCompleted {
						exitCode = 1
					}
				}
			}()
			return nil
		},
	})
}

func main() {
	var opts options
	flag.StringVar(&opts.mode, "mode", "daily", "batch to run: daily or meeting")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "evaluate fixture data in memory and print the result")
	flag.StringVar(&opts.fixtures, "fixtures", "", "fixture JSON file used with -dry-run")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Minute, "maximum run time")
	flag.Parse()

	if opts.dryRun {
		if opts.fixtures == "" {
			fmt.Fprintln(os.Stderr, "-dry-run needs -fixtures")
			os.Exit(2)
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := dryRun(cfg, opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	fx.New(
		fx.Supply(opts),
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			database.NewRedis,
			business.NewStore,
			notification.NewNotificationRepository,
			notification.NewTemplateRepository,
			notification.NewRuleRepository,
			trigger.NewRunRepository,
			notification.NewWriter,
			evaluator.NewCatalog,
			evaluator.NewEnv,
			evaluator.NewRegistry,
			trigger.NewLocker,
			trigger.NewRunner,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(metrics.Register, RunOnce),
	).Run()
}
