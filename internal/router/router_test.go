package router

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supermon-ng/supermon-ng/internal/astdb"
	"github.com/supermon-ng/supermon-ng/internal/config"
	"github.com/supermon-ng/supermon-ng/internal/handlers"
	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/metrics"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestApp(t *testing.T, auth bool) *fiber.App {
	t.Helper()
	logger := logging.NewNop()

	index := astdb.NewIndex("", logger)
	require.NoError(t, index.Load(strings.NewReader("2000|WA3XYZ|Hub|Pittsburgh, PA\n")))

	m := metrics.New(prometheus.NewRegistry())
	m.PoolAcquire("dial")

	cfg := config.DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	cfg.Auth.Enabled = auth
	cfg.Auth.APIKeys = []string{testKey}

	h := handlers.New(logger, handlers.Options{Index: index})
	return New(logger, h, m.Handler(), *cfg)
}

func TestRouter_PublicRoutes(t *testing.T) {
	app := newTestApp(t, true)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "supermon_ami_pool_acquire_total")
}

func TestRouter_ProtectedRoutes(t *testing.T) {
	app := newTestApp(t, true)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/astdb/2000", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/v1/astdb/2000", nil)
	req.Header.Set("X-API-Key", testKey)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRouter_NotFound(t *testing.T) {
	app := newTestApp(t, false)

	resp, err := app.Test(httptest.NewRequest("GET", "/v2/unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRouter_CORSPreflight(t *testing.T) {
	app := newTestApp(t, false)

	req := httptest.NewRequest("OPTIONS", "/v1/nodes/2000/link", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
