package logging

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MiddlewareConfig defines configuration for the request logging middleware.
type MiddlewareConfig struct {
	// SkipPaths are not logged.
	SkipPaths []string
}

// DefaultMiddlewareConfig skips health and metrics probes.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{SkipPaths: []string{"/health", "/metrics"}}
}

// FiberMiddleware returns a Fiber middleware for request logging.
func FiberMiddleware(logger *Logger, cfg MiddlewareConfig) fiber.Handler {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(fiber.HeaderXRequestID, requestID)

		ctx := WithLogger(WithRequestID(c.UserContext(), requestID), logger)
		c.SetUserContext(ctx)

		if _, ok := skip[c.Path()]; ok {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		duration := time.Since(start)
		status := c.Response().StatusCode()

		fields := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"ip", c.IP(),
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"request_id", requestID,
		}

		switch {
		case err != nil:
			logger.Error("Request failed", append(fields, "error", err)...)
			return err
		case status >= 500:
			logger.Error("Server error", fields...)
		case status >= 400:
			logger.Warn("Client error", fields...)
		default:
			logger.Debug("Request completed", fields...)
		}
		return nil
	}
}
