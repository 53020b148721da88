package router

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/supermon-ng/supermon-ng/internal/config"
	"github.com/supermon-ng/supermon-ng/internal/handlers"
	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/middleware"
)

// StreamPath serves the Server-Sent Events status stream
const StreamPath = "/v1/nodes/stream"

// Setup configures all routes and middlewares. metricsHandler may be nil.
func Setup(app *fiber.App, logger *logging.Logger, h *handlers.Handler, metricsHandler http.Handler, cfg config.Config) {
	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, logging.DefaultMiddlewareConfig()))

	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	// Health check and metrics (no auth required)
	app.Get("/health", h.Health)
	if cfg.Metrics.Enabled && metricsHandler != nil {
		app.Get(metricsPath, adaptor.HTTPHandler(metricsHandler))
	}

	// API key authentication middleware
	authMiddleware := middleware.APIKeyAuth(logger, middleware.AuthConfig{
		Enabled:       cfg.Auth.Enabled,
		APIKeys:       cfg.Auth.APIKeys,
		PublicPaths:   []string{"/health", metricsPath},
		QueryKeyPaths: []string{StreamPath},
	})

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", authMiddleware)

	// Node status routes
	v1.Get("/nodes/status", h.NodeStatuses)
	v1.Get("/nodes/stream", h.NodeStream)
	v1.Get("/nodes/:node/status", h.NodeStatus)

	// Node control routes
	v1.Post("/nodes/:node/link", h.Link)
	v1.Post("/nodes/:node/dtmf", h.DTMF)
	v1.Post("/nodes/:node/reload", h.Reload)

	// Node diagnostics routes
	v1.Get("/nodes/:node/rptstats", h.RptStats)
	v1.Get("/nodes/:node/lstats", h.LinkStats)
	v1.Get("/nodes/:node/registrations", h.Registrations)
	v1.Get("/nodes/:node/voter", h.Voter)

	// Directory routes
	v1.Get("/lookup", h.Lookup)
	v1.Get("/astdb/search", h.ASTDBSearch)
	v1.Post("/astdb/reload", h.ASTDBReload)
	v1.Get("/astdb/:node", h.ASTDBGet)

	// Console host
	v1.Get("/system", h.System)

	// 404 handler
	app.Use(h.NotFound)
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, h *handlers.Handler, metricsHandler http.Handler, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Supermon-ng Console",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, h, metricsHandler, cfg)

	return app
}
