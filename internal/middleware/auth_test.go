package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"insure-crm/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

func newTestApp(skipAuth bool, role string) *fiber.App {
	app := fiber.New()
	handlers := []fiber.Handler{AuthMiddleware(skipAuth)}
	if role != "" {
		handlers = append(handlers, RequireRole(role))
	}
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.SendString(CurrentUserID(c))
	})
	app.Get("/", handlers...)
	return app
}

func TestAuthMiddleware(t *testing.T) {
	utils.SetSecret("test-secret")
	agentToken, err := utils.GenerateToken("agent-1", []string{"agent"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	adminToken, err := utils.GenerateToken("admin-1", []string{"admin"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		role   string
		header string
		want   int
	}{
		{"missing header", "", "", fiber.StatusUnauthorized},
		{"not bearer", "", "Token " + agentToken, fiber.StatusUnauthorized},
		{"bad token", "", "Bearer nope", fiber.StatusUnauthorized},
		{"valid token", "", "Bearer " + agentToken, fiber.StatusOK},
		{"missing role", "admin", "Bearer " + agentToken, fiber.StatusForbidden},
		{"has role", "admin", "Bearer " + adminToken, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := newTestApp(false, tt.role).Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestAuthMiddlewareSkipAuthUsesHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-User-ID", "agent-7")
	resp, err := newTestApp(true, "admin").Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if got := string(body); got != "agent-7" {
		t.Errorf("user id %q, want agent-7", got)
	}
}
