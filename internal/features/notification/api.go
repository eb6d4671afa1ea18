package notification

import (
	"insure-crm/internal/config"
	"insure-crm/internal/middleware"
	"insure-crm/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const wsUserKey = "ws_user_id"

type NotificationApi struct {
	controller *NotificationController
	config     *config.Config
}

func NewNotificationApi(controller *NotificationController, config *config.Config) *NotificationApi {
	return &NotificationApi{
		controller: controller,
		config:     config,
	}
}

// wsAuth authenticates the upgrade request from the token query parameter,
// since browsers cannot set headers on websocket handshakes.
func (h *NotificationApi) wsAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if h.config.SkipAuth {
		c.Locals(wsUserKey, c.Query("user_id", "dev-agent-id"))
		return c.Next()
	}
	claims, err := utils.ValidateToken(c.Query("token"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	c.Locals(wsUserKey, claims.UserID)
	return c.Next()
}

func (h *NotificationApi) Setup(app *fiber.App) {
	// registered before the authenticated group so the header check does not apply
	app.Get("/api/notifications/ws", h.wsAuth, websocket.New(h.controller.Stream))

	notifications := app.Group("/api/notifications", middleware.AuthMiddleware(h.config.SkipAuth))

	notifications.Get("/", h.controller.ListNotifications)
	notifications.Get("/unread-count", h.controller.UnreadCount)
	notifications.Post("/mark-all-read", h.controller.MarkAllAsRead)
	notifications.Get("/settings", h.controller.GetSettings)
	notifications.Put("/settings", h.controller.UpdateSettings)
	notifications.Get("/stats", h.controller.GetStats)
	notifications.Get("/history", h.controller.GetHistory)
	notifications.Get("/export", h.controller.ExportNotifications)
	notifications.Put("/:id/read", h.controller.MarkAsRead)
	notifications.Put("/:id/unread", h.controller.MarkAsUnread)
	notifications.Delete("/:id", h.controller.DeleteNotification)

	templates := app.Group("/api/notification-templates", middleware.AuthMiddleware(h.config.SkipAuth), middleware.RequireRole("admin"))
	templates.Get("/", h.controller.ListTemplates)
	templates.Put("/", h.controller.UpsertTemplate)
	templates.Delete("/:id", h.controller.DeleteTemplate)

	rules := app.Group("/api/notification-rules", middleware.AuthMiddleware(h.config.SkipAuth), middleware.RequireRole("admin"))
	rules.Get("/", h.controller.ListRules)
	rules.Post("/", h.controller.CreateRule)
	rules.Put("/:id", h.controller.UpdateRule)
	rules.Delete("/:id", h.controller.DeleteRule)
}
