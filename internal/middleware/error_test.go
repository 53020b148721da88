package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/nodeconfig"
	"github.com/supermon-ng/supermon-ng/internal/services"
)

func serveError(t *testing.T, method string, handlerErr error) (int, models.ErrorResponse) {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.NewNop())})
	app.Add(method, "/test", func(c *fiber.Ctx) error { return handlerErr })

	resp, err := app.Test(httptest.NewRequest(method, "/test", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "/test", body.Error.Path)
	return resp.StatusCode, body
}

func TestErrorHandler_FiberErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not found", fiber.ErrNotFound, fiber.StatusNotFound, "ERROR", "Cannot GET /test"},
		{"bad request", fiber.NewError(fiber.StatusBadRequest, "digits is required"), fiber.StatusBadRequest, services.CodeInvalidRequest, "digits is required"},
		{"service unavailable", fiber.ErrServiceUnavailable, fiber.StatusServiceUnavailable, "ERROR", "Service Unavailable"},
		{"custom", fiber.NewError(fiber.StatusTeapot, "I'm a teapot"), fiber.StatusTeapot, "ERROR", "I'm a teapot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serveError(t, fiber.MethodGet, tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.err != fiber.ErrNotFound {
				assert.Equal(t, tt.wantMsg, body.Error.Message)
			}
		})
	}
}

func TestErrorHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid request", services.NewServiceError(services.CodeInvalidRequest, "bad"), fiber.StatusBadRequest, services.CodeInvalidRequest},
		{"ami unavailable", services.NewServiceError(services.CodeAMIUnavailable, "down"), fiber.StatusBadGateway, services.CodeAMIUnavailable},
		{"auth failed", services.NewServiceError(services.CodeAMIAuthFailed, "denied"), fiber.StatusBadGateway, services.CodeAMIAuthFailed},
		{"command failed", services.NewServiceError(services.CodeCommandFailed, "rejected"), fiber.StatusBadGateway, services.CodeCommandFailed},
		{"unsupported", services.NewServiceError(services.CodeUnsupported, "no"), fiber.StatusNotImplemented, services.CodeUnsupported},
		{"wrapped", fmt.Errorf("link: %w", services.NewServiceError(services.CodeAMIUnavailable, "down")), fiber.StatusBadGateway, services.CodeAMIUnavailable},
		{"node not configured", &services.ConfigurationError{Node: "2000", Err: nodeconfig.ErrNodeNotFound}, fiber.StatusNotFound, services.CodeNodeNotConfigured},
		{"node incomplete", &services.ConfigurationError{Node: "2000", Err: nodeconfig.ErrIncomplete}, fiber.StatusBadRequest, services.CodeNodeIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serveError(t, fiber.MethodPost, tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestErrorHandler_ConfigurationErrorDetails(t *testing.T) {
	_, body := serveError(t, fiber.MethodGet, &services.ConfigurationError{Node: "2000", Err: nodeconfig.ErrNodeNotFound})
	assert.Equal(t, "2000", body.Error.Details["node"])
}

func TestErrorHandler_GenericError(t *testing.T) {
	status, body := serveError(t, fiber.MethodGet, errors.New("something went wrong"))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "ERROR", body.Error.Code)
	assert.Equal(t, "Internal Server Error", body.Error.Message)
}

func TestServiceStatus_Unknown(t *testing.T) {
	assert.Equal(t, fiber.StatusInternalServerError, ServiceStatus("SOMETHING_ELSE"))
}
