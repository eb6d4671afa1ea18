package system

import (
	"insure-crm/internal/common/api"
	"insure-crm/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// SwaggerApi serves the API docs outside production.
type SwaggerApi struct {
	enabled bool
}

func NewSwaggerApi(cfg *config.Config) api.Route {
	return &SwaggerApi{enabled: cfg.Environment != "production"}
}

func (h *SwaggerApi) Setup(app *fiber.App) {
	if !h.enabled {
		return
	}
	app.Get("/swagger/*", swagger.New(swagger.Config{
		Title:        "Insure CRM Notifications",
		DeepLinking:  true,
		DocExpansion: "list",
	}))
}
