package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/astdb"
	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/services"
	"github.com/supermon-ng/supermon-ng/internal/utils"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// PoolStatter exposes AMI pool occupancy for the health endpoint
type PoolStatter interface {
	Stats() []ami.PoolStats
}

// NodeLister lists the configured nodes
type NodeLister interface {
	NodeIDs(ctx context.Context) ([]string, error)
}

// Options holds the collaborators of Handler
type Options struct {
	Status  *services.StatusService
	Stream  *services.StreamService
	Control *services.ControlService
	Lookup  *services.LookupService
	System  *services.SystemService
	Index   *astdb.Index
	Nodes   NodeLister
	// Pool is nil when commands go through the shell transport
	Pool PoolStatter

	SearchLimit    int
	MaxSearchLimit int
}

// Handler contains all HTTP handlers
type Handler struct {
	logger  *logging.Logger
	status  *services.StatusService
	stream  *services.StreamService
	control *services.ControlService
	lookup  *services.LookupService
	system  *services.SystemService
	index   *astdb.Index
	nodes   NodeLister
	pool    PoolStatter

	searchLimit    int
	maxSearchLimit int
}

// New creates a new handler instance
func New(logger *logging.Logger, opts Options) *Handler {
	if opts.MaxSearchLimit <= 0 {
		opts.MaxSearchLimit = astdb.MaxSearchResults
	}
	if opts.SearchLimit <= 0 || opts.SearchLimit > opts.MaxSearchLimit {
		opts.SearchLimit = opts.MaxSearchLimit
	}
	return &Handler{
		logger:         logger.Component("handlers"),
		status:         opts.Status,
		stream:         opts.Stream,
		control:        opts.Control,
		lookup:         opts.Lookup,
		system:         opts.System,
		index:          opts.Index,
		nodes:          opts.Nodes,
		pool:           opts.Pool,
		searchLimit:    opts.SearchLimit,
		maxSearchLimit: opts.MaxSearchLimit,
	}
}

// requestContext bounds a request's backend work
func requestContext(c *fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = utils.DefaultRequestTimeout
	}
	return context.WithTimeout(c.UserContext(), timeout)
}

// nodeParam returns the :node path parameter, rejecting non-numeric ids
func nodeParam(c *fiber.Ctx) (string, error) {
	node := c.Params("node")
	if !models.IsNodeID(node) {
		return "", fiber.NewError(fiber.StatusBadRequest, "node must be a numeric node number")
	}
	return node, nil
}

func recordOf(r astdb.Record) models.ASTDBRecord {
	return models.ASTDBRecord{
		Node:        r.NodeID,
		Callsign:    r.Callsign,
		Description: r.Description,
		Location:    r.Location,
		Info:        r.Info(),
	}
}
