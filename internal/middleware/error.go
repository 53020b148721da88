package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/services"
)

var serviceStatus = map[string]int{
	services.CodeInvalidRequest:    fiber.StatusBadRequest,
	services.CodeNodeNotConfigured: fiber.StatusNotFound,
	services.CodeNodeIncomplete:    fiber.StatusBadRequest,
	services.CodeConfigUnavailable: fiber.StatusServiceUnavailable,
	services.CodeAMIUnavailable:    fiber.StatusBadGateway,
	services.CodeAMIAuthFailed:     fiber.StatusBadGateway,
	services.CodeCommandFailed:     fiber.StatusBadGateway,
	services.CodeUnsupported:       fiber.StatusNotImplemented,
}

// ServiceStatus returns the HTTP status for a service error code
func ServiceStatus(code string) int {
	if status, ok := serviceStatus[code]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error returned by a handler as a
// models.ErrorResponse
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		detail := models.ErrorDetail{
			Code:    "ERROR",
			Message: "Internal Server Error",
			Path:    c.Path(),
		}

		var fiberErr *fiber.Error
		var svcErr *services.ServiceError
		var cfgErr *services.ConfigurationError
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			detail.Message = fiberErr.Message
			if code == fiber.StatusBadRequest {
				detail.Code = services.CodeInvalidRequest
			}
		case errors.As(err, &svcErr), errors.As(err, &cfgErr):
			se := services.AsServiceError(err)
			code = ServiceStatus(se.Code)
			detail.Code = se.Code
			detail.Message = se.Message
			detail.Details = se.Details
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("Request error", "path", c.Path(), "method", c.Method(), "status", code, "error", err)
		} else {
			logger.Warn("Request rejected", "path", c.Path(), "method", c.Method(), "status", code, "error", err)
		}

		return c.Status(code).JSON(models.ErrorResponse{Error: detail})
	}
}
