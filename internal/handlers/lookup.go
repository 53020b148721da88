package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/utils"
)

// Lookup handles GET /v1/lookup?q=...&node=...
// node is the local node whose manager answers EchoLink queries.
func (h *Handler) Lookup(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q is required")
	}
	local := strings.TrimSpace(c.Query("node"))
	if local != "" && !models.IsNodeID(local) {
		return fiber.NewError(fiber.StatusBadRequest, "node must be a numeric node number")
	}

	ctx, cancel := requestContext(c, utils.LookupTimeout)
	defer cancel()

	resp, err := h.lookup.Lookup(ctx, q, local)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ASTDBSearch handles GET /v1/astdb/search?q=...&limit=...
// A numeric query also matches the node with that number, listed first.
func (h *Handler) ASTDBSearch(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q is required")
	}

	limit := h.searchLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, h.maxSearchLimit)
	}

	results := make([]models.ASTDBRecord, 0)
	if models.IsNodeID(q) {
		if r, ok := h.index.Lookup(q); ok {
			results = append(results, recordOf(r))
		}
	}
	for _, r := range h.index.Search(q, limit) {
		if len(results) == limit {
			break
		}
		if r.NodeID == q {
			continue
		}
		results = append(results, recordOf(r))
	}

	return c.JSON(models.ASTDBSearchResponse{
		Query:   q,
		Count:   len(results),
		Results: results,
	})
}

// ASTDBGet handles GET /v1/astdb/:node
func (h *Handler) ASTDBGet(c *fiber.Ctx) error {
	node, err := nodeParam(c)
	if err != nil {
		return err
	}
	r, ok := h.index.Lookup(node)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "node "+node+" is not in the node database")
	}
	return c.JSON(recordOf(r))
}

// ASTDBReload handles POST /v1/astdb/reload
func (h *Handler) ASTDBReload(c *fiber.Ctx) error {
	h.index.Reload()
	h.logger.Info("ASTDB reloaded", "path", h.index.Path(), "records", h.index.Len(), "ip", c.IP())

	resp := models.ASTDBReloadResponse{Records: h.index.Len()}
	if at := h.index.LoadedAt(); !at.IsZero() {
		resp.LoadedAt = at.UTC().Format(time.RFC3339)
	}
	return c.JSON(resp)
}
