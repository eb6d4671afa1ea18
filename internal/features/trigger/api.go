package trigger

import (
	"insure-crm/internal/config"
	"insure-crm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TriggerApi struct {
	controller *TriggerController
	config     *config.Config
}

func NewTriggerApi(controller *TriggerController, config *config.Config) *TriggerApi {
	return &TriggerApi{
		controller: controller,
		config:     config,
	}
}

func (h *TriggerApi) Setup(app *fiber.App) {
	app.Post("/api/notification-events", middleware.AuthMiddleware(h.config.SkipAuth), h.controller.PublishEvent)

	triggers := app.Group("/api/notification-triggers", middleware.AuthMiddleware(h.config.SkipAuth), middleware.RequireRole("admin"))
	triggers.Post("/daily", h.controller.RunDaily)
	triggers.Post("/meetings", h.controller.RunMeetings)
	triggers.Get("/runs", h.controller.ListRuns)
}
