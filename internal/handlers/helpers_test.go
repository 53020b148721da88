package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/ami/amitest"
	"github.com/supermon-ng/supermon-ng/internal/astdb"
	"github.com/supermon-ng/supermon-ng/internal/cache"
	"github.com/supermon-ng/supermon-ng/internal/config"
	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/metrics"
	"github.com/supermon-ng/supermon-ng/internal/middleware"
	"github.com/supermon-ng/supermon-ng/internal/nodeconfig"
	"github.com/supermon-ng/supermon-ng/internal/services"
)

const testASTDB = `2000|WA3XYZ|Hub|Pittsburgh, PA
546051|W5GLE|Main Repeater|Austin, TX
546054|K5ABC|Link Node|Dallas, TX
`

type testServer struct {
	app    *fiber.App
	ami    *amitest.Server
	index  *astdb.Index
	pool   *ami.Pool
	astdbF string
}

// newTestServer wires every route against one fake manager serving node 2000
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logging.NewNop()

	fake := amitest.NewServer(t, "admin", "secret")
	nodes := nodeconfig.NewStatic(map[string]config.NodeEntry{
		"2000": {Host: fake.Addr(), User: "admin", Password: "secret"},
		"9999": {Host: "127.0.0.1"},
	}, config.AMIConfig{Port: 5038})

	pool := ami.NewPool(ami.PoolConfig{
		MaxPerKey:   2,
		IdleTTL:     time.Minute,
		DialTimeout: time.Second,
		ReadTimeout: 300 * time.Millisecond,
	}, logger, metrics.New(nil))
	t.Cleanup(pool.Close)
	transport := pool.Transport()

	path := t.TempDir() + "/astdb.txt"
	require.NoError(t, os.WriteFile(path, []byte(testASTDB), 0o644))
	index := astdb.NewIndex(path, logger)
	index.Reload()

	mem := cache.NewMemory(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })

	status := services.NewStatusService(logger, nodes, transport, index, metrics.New(nil), services.StatusSettings{
		Timeout:           2 * time.Second,
		MaxConcurrency:    4,
		EchoLinkThreshold: 3000000,
	})
	h := New(logger, Options{
		Status: status,
		Stream: services.NewStreamService(logger, status, services.StreamSettings{
			Interval:      50 * time.Millisecond,
			TimesInterval: time.Second,
		}),
		Control: services.NewControlService(logger, nodes, transport, nil, services.ControlSettings{
			Timeout: 2 * time.Second,
		}),
		Lookup: services.NewLookupService(logger, nodes, transport, index, mem, nil, metrics.New(nil), services.LookupSettings{
			EchoLinkThreshold: 3000000,
			IRLPMin:           80000,
			IRLPMax:           90000,
		}),
		System:         services.NewSystemService(logger, t.TempDir()),
		Index:          index,
		Nodes:          nodes,
		Pool:           pool,
		SearchLimit:    2,
		MaxSearchLimit: 200,
	})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	app.Get("/health", h.Health)
	app.Get("/v1/nodes/status", h.NodeStatuses)
	app.Get("/v1/nodes/stream", h.NodeStream)
	app.Get("/v1/nodes/:node/status", h.NodeStatus)
	app.Post("/v1/nodes/:node/link", h.Link)
	app.Post("/v1/nodes/:node/dtmf", h.DTMF)
	app.Get("/v1/nodes/:node/rptstats", h.RptStats)
	app.Get("/v1/nodes/:node/lstats", h.LinkStats)
	app.Get("/v1/nodes/:node/registrations", h.Registrations)
	app.Get("/v1/nodes/:node/voter", h.Voter)
	app.Post("/v1/nodes/:node/reload", h.Reload)
	app.Get("/v1/lookup", h.Lookup)
	app.Get("/v1/astdb/search", h.ASTDBSearch)
	app.Post("/v1/astdb/reload", h.ASTDBReload)
	app.Get("/v1/astdb/:node", h.ASTDBGet)
	app.Get("/v1/system", h.System)
	app.Use(h.NotFound)

	return &testServer{app: app, ami: fake, index: index, pool: pool, astdbF: path}
}

// do performs a request and decodes the JSON body into out when out is non-nil
func (s *testServer) do(t *testing.T, method, target, body string, out interface{}) int {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *testServer) get(t *testing.T, target string, out interface{}) int {
	return s.do(t, http.MethodGet, target, "", out)
}
