package middleware

import (
	"strconv"
	"time"

	"coursepay/internal/metrics"
	"coursepay/internal/services/paymentlog"

	"github.com/gofiber/fiber/v2"
)

// RequestInfo copies the client address, user agent and session id into
// the request context for the audit log.
func RequestInfo() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := paymentlog.WithRequestInfo(c.UserContext(), paymentlog.RequestInfo{
			IPAddress: c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
			SessionID: c.Get("X-Session-ID"),
		})
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		path := c.Route().Path
		metrics.RecordHTTPRequest(c.Method(), path, strconv.Itoa(status), duration)
		return err
	}
}
