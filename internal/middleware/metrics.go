package middleware

import (
	"strconv"
	"time"

	"insure-crm/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// MetricsMiddleware records request counts and latency per matched route.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		method := c.Method()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		metrics.HttpRequestsTotal.WithLabelValues(route, strconv.Itoa(status), method).Inc()
		metrics.HttpRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		return err
	}
}
