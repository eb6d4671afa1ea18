package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"insure-crm/internal/features/events"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TriggerController struct {
	Runner *Runner
	Runs   RunRepository
	Bus    events.Bus
	Logger *zap.Logger
}

func NewTriggerController(runner *Runner, runs RunRepository, bus events.Bus, logger *zap.Logger) *TriggerController {
	return &TriggerController{
		Runner: runner,
		Runs:   runs,
		Bus:    bus,
		Logger: logger,
	}
}

type publishRequest struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// PublishEvent godoc
// @Summary      Publish a domain event
// @Description  Queues client.stage_changed, meeting.scheduled or invitation.used for the realtime hooks
// @Tags         notification-events
// @Accept       json
// @Produce      json
// @Param        event body publishRequest true "Event"
// @Success      202 {object} map[string]interface{}
// @Failure      400 {object} map[string]interface{}
// @Router       /api/notification-events [post]
func (c *TriggerController) PublishEvent(ctx *fiber.Ctx) error {
	var req publishRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !events.IsKnown(req.Name) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown event: " + req.Name})
	}
	if len(req.Data) == 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Event data is required"})
	}

	e := events.Event{
		ID:         uuid.NewString(),
		Name:       req.Name,
		OccurredAt: time.Now(),
		Data:       req.Data,
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Bus.Publish(ctxt, e); err != nil {
		c.Logger.Error("Failed to publish event", zap.String("event", e.Name), zap.Error(err))
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Event could not be queued"})
	}
	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": e.ID, "status": "queued"})
}

func (c *TriggerController) runNow(ctx *fiber.Ctx, fn func(context.Context) (*TriggerRun, error)) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	run, err := fn(ctxt)
	if errors.Is(err, ErrRunInProgress) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		c.Logger.Error("Manual trigger run failed", zap.Error(err))
		if run != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(run)
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong, please try again"})
	}
	return ctx.JSON(run)
}

// RunDaily godoc
// @Summary      Run the daily notification batch now
// @Tags         notification-triggers
// @Produce      json
// @Success      200 {object} TriggerRun
// @Failure      409 {object} map[string]interface{}
// @Router       /api/notification-triggers/daily [post]
func (c *TriggerController) RunDaily(ctx *fiber.Ctx) error {
	return c.runNow(ctx, c.Runner.RunDailyNotificationTriggers)
}

// RunMeetings godoc
// @Summary      Run the meeting reminder batch now
// @Tags         notification-triggers
// @Produce      json
// @Success      200 {object} TriggerRun
// @Failure      409 {object} map[string]interface{}
// @Router       /api/notification-triggers/meetings [post]
func (c *TriggerController) RunMeetings(ctx *fiber.Ctx) error {
	return c.runNow(ctx, c.Runner.RunMeetingReminders)
}

// ListRuns godoc
// @Summary      Recent trigger runs
// @Tags         notification-triggers
// @Produce      json
// @Param        kind  query string false "daily or meeting"
// @Param        limit query int    false "Max rows (default 20)"
// @Success      200 {array} TriggerRun
// @Router       /api/notification-triggers/runs [get]
func (c *TriggerController) ListRuns(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 20)
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runs, err := c.Runs.List(ctxt, RunKind(ctx.Query("kind")), limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(runs)
}
