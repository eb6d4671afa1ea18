package main

import (
	"context"
	"fmt"
	common_api "insure-crm/internal/common/api"
	"insure-crm/internal/config"
	"insure-crm/internal/database"
	"insure-crm/internal/features/business"
	"insure-crm/internal/features/delivery"
	"insure-crm/internal/features/evaluator"
	"insure-crm/internal/features/events"
	"insure-crm/internal/features/notification"
	"insure-crm/internal/features/system"
	"insure-crm/internal/features/trigger"
	"insure-crm/internal/logger"
	"insure-crm/internal/metrics"
	"insure-crm/internal/middleware"
	"insure-crm/internal/tracing"
	"insure-crm/pkg/utils"
	"log"
	"time"

	_ "insure-crm/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	utils.SetSecret(cfg.JWTSecret)

	app.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	app.Use(middleware.MetricsMiddleware())

	return app
}

// AsRoute tags the constructor so Fx adds it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes calls Setup() on every route in the "routes" group.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, logger *zap.Logger) {
	logger.Info("Registering routes", zap.Int("count", len(routes)))
	for _, route := range routes {
		logger.Debug("Setting up route", zap.String("route", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer starts Fiber in a goroutine and shuts it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, notifications notification.NotificationRepository, runs trigger.RunRepository, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := notifications.EnsureIndexes(ctx); err != nil {
					logger.Error("Failed to ensure notification indexes", zap.Error(err))
				}
				if err := runs.EnsureIndexes(ctx); err != nil {
					logger.Error("Failed to ensure trigger run indexes", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

// @title           Insure CRM Notification API
// @version         1.0
// @description     Notification generation, delivery and read API for the insurance-agent CRM.

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			NewFiberServer,

			database.NewDatabase,
			database.NewRedis,
			business.NewStore,

			notification.NewNotificationRepository,
			notification.NewSettingsRepository,
			notification.NewHistoryRepository,
			notification.NewTemplateRepository,
			notification.NewRuleRepository,
			trigger.NewRunRepository,

			notification.NewWriter,
			notification.NewHub,
			notification.NewNotificationService,
			evaluator.NewCatalog,
			func(c *evaluator.Catalog) notification.TemplateListener { return c },
			evaluator.NewEnv,
			evaluator.NewRegistry,
			events.NewBus,
			trigger.NewLocker,
			trigger.NewRunner,
			trigger.NewRealtimeTriggers,
			fx.Annotate(delivery.NewDispatcher, fx.As(new(trigger.Dispatcher))),
			trigger.NewScheduler,

			notification.NewNotificationController,
			trigger.NewTriggerController,

			AsRoute(notification.NewNotificationApi),
			AsRoute(trigger.NewTriggerApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			metrics.Register,
			tracing.InitTracer,
			RegisterAllRoutesWithAnnotation,
			StartServer,
			InitializeIndexes,
			trigger.RegisterRealtime,
			trigger.StartScheduler,
		),
	)

	app.Run()
}
