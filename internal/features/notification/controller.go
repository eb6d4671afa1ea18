package notification

import (
	"context"
	"errors"
	"strconv"
	"time"

	"insure-crm/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type NotificationController struct {
	Service NotificationService
	Hub     *Hub
	Logger  *zap.Logger
}

func NewNotificationController(service NotificationService, hub *Hub, logger *zap.Logger) *NotificationController {
	return &NotificationController{
		Service: service,
		Hub:     hub,
		Logger:  logger,
	}
}

// respondError maps service errors onto the HTTP contract.
func (c *NotificationController) respondError(ctx *fiber.Ctx, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Error()})
	}
	c.Logger.Error("Notification request failed",
		zap.String("path", ctx.Path()),
		zap.String("user_id", middleware.CurrentUserID(ctx)),
		zap.Error(err))
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong, please try again"})
}

func listOptionsFromQuery(ctx *fiber.Ctx) ListOptions {
	return ListOptions{
		Limit:      int64(ctx.QueryInt("limit", DefaultListLimit)),
		Offset:     int64(ctx.QueryInt("offset", 0)),
		Status:     Status(ctx.Query("status")),
		Type:       NotificationType(ctx.Query("type")),
		UnreadOnly: ctx.QueryBool("unread_only", false),
	}
}

// ListNotifications godoc
// @Summary      List notifications
// @Description  Unread first, then newest first
// @Tags         notifications
// @Produce      json
// @Param        limit       query int    false "Page size (max 200)"
// @Param        offset      query int    false "Offset"
// @Param        status      query string false "Status filter"
// @Param        type        query string false "Type filter"
// @Param        unread_only query bool   false "Only unread"
// @Success      200 {array} Notification
// @Failure      400 {object} map[string]interface{}
// @Router       /api/notifications [get]
func (c *NotificationController) ListNotifications(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := c.Service.List(ctxt, middleware.CurrentUserID(ctx), listOptionsFromQuery(ctx))
	if err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.JSON(rows)
}

// UnreadCount godoc
// @Summary      Unread notification count
// @Tags         notifications
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /api/notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := c.Service.UnreadCount(ctxt, middleware.CurrentUserID(ctx))
	if err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"count": count})
}

// MarkAsRead godoc
// @Summary      Mark a notification read
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} Notification
// @Failure      404 {object} map[string]interface{}
// @Router       /api/notifications/{id}/read [put]
func (c *NotificationController) MarkAsRead(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := c.Service.MarkRead(ctxt, ctx.Params("id"), middleware.CurrentUserID(ctx))
	if err != nil {
		return c.respondError(ctx, err)
	}
	if n == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}
	return ctx.JSON(n)
}

// MarkAsUnread godoc
// @Summary      Mark a notification unread
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} Notification
// @Failure      404 {object} map[string]interface{}
// @Router       /api/notifications/{id}/unread [put]
func (c *NotificationController) MarkAsUnread(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := c.Service.MarkUnread(ctxt, ctx.Params("id"), middleware.CurrentUserID(ctx))
	if err != nil {
		return c.respondError(ctx, err)
	}
	if n == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}
	return ctx.JSON(n)
}

// MarkAllAsRead godoc
// @Summary      Mark every unread notification read
// @Tags         notifications
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /api/notifications/mark-all-read [post]
func (c *NotificationController) MarkAllAsRead(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := c.Service.MarkAllRead(ctxt, middleware.CurrentUserID(ctx))
	if err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"updated": len(rows), "notifications": rows})
}

// DeleteNotification godoc
// @Summary      Delete a notification
// @Tags         notifications
// @Param        id path string true "Notification ID"
// @Success      204
// @Failure      404 {object} map[string]interface{}
// @Router       /api/notifications/{id} [delete]
func (c *NotificationController) DeleteNotification(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := c.Service.Delete(ctxt, ctx.Params("id"), middleware.CurrentUserID(ctx))
	if err != nil {
		return c.respondError(ctx, err)
	}
	if n == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// GetSettings godoc
// @Summary      Get notification settings
// @Tags         notifications
// @Produce      json
// @Success      200 {object} Settings
// @Router       /api/notifications/settings [get]
func (c *NotificationController) GetSettings(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	settings, err := c.Service.GetSettings(ctxt, middleware.CurrentUserID(ctx))
	if err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.JSON(settings)
}

// UpdateSettings godoc
// @Summary      Update notification settings
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        settings body Settings true "Settings"
// @Success      200 {object} Settings
// @Failure      400 {object} map[string]interface{}
// @Router       /api/notifications/settings [put]
func (c *NotificationController) UpdateSettings(ctx *fiber.Ctx) error {
	var settings Settings
	if err := ctx.BodyParser(&settings); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	settings.UserID = middleware.CurrentUserID(ctx)

	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	saved, err := c.Service.UpsertSettings(ctxt, &settings)
	if err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.JSON(saved)
}

// GetStats godoc
// @Summary      Notification statistics
// @Tags         notifications
// @Produce      json
// @Param        days query int false "Trailing window in days (default 30)"
// @Success      200 {object} Stats
// @Router       /api/notifications/stats [get]
func (c *NotificationController) GetStats(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := c.Service.GetStats(ctxt, middleware.CurrentUserID(ctx), ctx.QueryInt("days", DefaultStatsDays))
	if err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.JSON(stats)
}

// GetHistory godoc
// @Summary      Delivery history
// @Tags         notifications
// @Produce      json
// @Param        limit query int false "Max rows"
// @Success      200 {array} History
// @Router       /api/notifications/history [get]
func (c *NotificationController) GetHistory(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := c.Service.History(ctxt, middleware.CurrentUserID(ctx), int64(ctx.QueryInt("limit", DefaultListLimit)))
	if err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.JSON(rows)
}

// ExportNotifications godoc
// @Summary      Export notifications as xlsx
// @Tags         notifications
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200 {file} file
// @Router       /api/notifications/export [get]
func (c *NotificationController) ExportNotifications(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, filename, err := c.Service.ExportExcel(ctxt, middleware.CurrentUserID(ctx), listOptionsFromQuery(ctx))
	if err != nil {
		return c.respondError(ctx, err)
	}
	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, "attachment; filename="+strconv.Quote(filename))
	return ctx.Send(data)
}

// Stream keeps a websocket open and registers it with the hub until the client leaves.
// @Summary      Live in-app notifications
// @Tags         notifications
// @Param        token query string true "JWT"
// @Router       /api/notifications/ws [get]
func (c *NotificationController) Stream(conn *websocket.Conn) {
	userID, _ := conn.Locals(wsUserKey).(string)
	c.Hub.Register(userID, conn)
	defer func() {
		c.Hub.Unregister(userID, conn)
		_ = conn.Close()
	}()

	c.Logger.Debug("Websocket connected", zap.String("user_id", userID))
	for {
		// inbound messages are ignored; reading detects the close
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *NotificationController) ListTemplates(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := c.Service.ListTemplates(ctxt)
	if err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.JSON(rows)
}

func (c *NotificationController) UpsertTemplate(ctx *fiber.Ctx) error {
	var t Template
	if err := ctx.BodyParser(&t); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Service.UpsertTemplate(ctxt, &t); err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.JSON(t)
}

func (c *NotificationController) DeleteTemplate(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := c.Service.DeleteTemplate(ctxt, ctx.Params("id"))
	if err != nil {
		return c.respondError(ctx, err)
	}
	if !ok {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Template not found"})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *NotificationController) ListRules(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := c.Service.ListRules(ctxt)
	if err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.JSON(rows)
}

func (c *NotificationController) CreateRule(ctx *fiber.Ctx) error {
	var rule Rule
	if err := ctx.BodyParser(&rule); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Service.CreateRule(ctxt, &rule); err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(rule)
}

func (c *NotificationController) UpdateRule(ctx *fiber.Ctx) error {
	var rule Rule
	if err := ctx.BodyParser(&rule); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updated, err := c.Service.UpdateRule(ctxt, ctx.Params("id"), &rule)
	if err != nil {
		return c.respondError(ctx, err)
	}
	if updated == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rule not found"})
	}
	return ctx.JSON(updated)
}

func (c *NotificationController) DeleteRule(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := c.Service.DeleteRule(ctxt, ctx.Params("id"))
	if err != nil {
		return c.respondError(ctx, err)
	}
	if !ok {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rule not found"})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
