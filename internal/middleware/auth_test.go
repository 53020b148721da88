package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/models"
)

// generateAPIKey generates a valid API key of specified length
func generateAPIKey(length int) string {
	key := make([]byte, length)
	for i := range key {
		key[i] = 'a' + byte(i%26)
	}
	return string(key)
}

func newAuthApp(cfg AuthConfig) *fiber.App {
	app := fiber.New()
	app.Use(APIKeyAuth(logging.NewNop(), cfg))
	ok := func(c *fiber.Ctx) error { return c.SendString("OK") }
	app.Get("/health", ok)
	app.Get("/v1/nodes/2000/status", ok)
	app.Get("/v1/nodes/stream", ok)
	return app
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected bool
	}{
		{"exactly 32 chars", generateAPIKey(32), true},
		{"longer than 32 chars", generateAPIKey(64), true},
		{"one char", "a", false},
		{"31 chars", generateAPIKey(31), false},
		{"empty", "", false},
		{"32 spaces", "                                ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateAPIKey(tt.key))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "abcd****", maskAPIKey("abcdefghijklmnop"))
	assert.Equal(t, "****", maskAPIKey("abcd"))
	assert.Equal(t, "****", maskAPIKey(""))
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	app := newAuthApp(AuthConfig{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/nodes/2000/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAPIKeyAuth_Headers(t *testing.T) {
	validKey := generateAPIKey(32)
	app := newAuthApp(AuthConfig{Enabled: true, APIKeys: []string{validKey}})

	tests := []struct {
		name       string
		headerName string
		headerVal  string
		wantStatus int
	}{
		{"X-API-Key header", "X-API-Key", validKey, fiber.StatusOK},
		{"Authorization Bearer header", "Authorization", "Bearer " + validKey, fiber.StatusOK},
		{"Authorization plain header", "Authorization", validKey, fiber.StatusOK},
		{"missing key", "", "", fiber.StatusUnauthorized},
		{"wrong key", "X-API-Key", generateAPIKey(32) + "wrong", fiber.StatusUnauthorized},
		{"short key", "X-API-Key", "short", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/nodes/2000/status", nil)
			if tt.headerName != "" {
				req.Header.Set(tt.headerName, tt.headerVal)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestAPIKeyAuth_UnauthorizedBody(t *testing.T) {
	app := newAuthApp(AuthConfig{Enabled: true, APIKeys: []string{generateAPIKey(32)}})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/nodes/2000/status", nil))
	require.NoError(t, err)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	assert.Equal(t, "/v1/nodes/2000/status", body.Error.Path)
}

func TestAPIKeyAuth_PublicAndQueryKeyPaths(t *testing.T) {
	validKey := generateAPIKey(40)
	app := newAuthApp(AuthConfig{
		Enabled:       true,
		APIKeys:       []string{validKey},
		PublicPaths:   []string{"/health"},
		QueryKeyPaths: []string{"/v1/nodes/stream"},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/nodes/stream?api_key="+validKey, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/nodes/2000/status?api_key="+validKey, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "query keys only on stream paths")
}

func TestAPIKeyAuth_WeakKeysRejected(t *testing.T) {
	weakKeys := []string{"a", "short", generateAPIKey(31)}
	app := newAuthApp(AuthConfig{Enabled: true, APIKeys: weakKeys})

	for _, weakKey := range weakKeys {
		req := httptest.NewRequest("GET", "/v1/nodes/2000/status", nil)
		req.Header.Set("X-API-Key", weakKey)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "weak key of length %d", len(weakKey))
	}
}
