package handlers

import (
	"bufio"
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/services"
	"github.com/supermon-ng/supermon-ng/internal/utils"
)

// NodeStatus handles GET /v1/nodes/:node/status
func (h *Handler) NodeStatus(c *fiber.Ctx) error {
	node, err := nodeParam(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c, utils.DefaultRequestTimeout)
	defer cancel()

	st, err := h.status.GetStatus(ctx, node)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

// NodeStatuses handles GET /v1/nodes/status?nodes=a,b
// Without a nodes parameter every configured node is reported.
func (h *Handler) NodeStatuses(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, utils.DefaultRequestTimeout)
	defer cancel()

	nodes, err := h.nodeList(ctx, c.Query("nodes"))
	if err != nil {
		return err
	}

	statuses, errs := h.status.GetStatuses(ctx, nodes)
	resp := models.NodeStatusListResponse{Nodes: statuses}
	if len(errs) > 0 {
		resp.Errors = make(map[string]models.ErrorDetail, len(errs))
		for node, e := range errs {
			se := services.AsServiceError(e)
			resp.Errors[node] = models.ErrorDetail{Code: se.Code, Message: se.Message}
		}
	}
	return c.JSON(resp)
}

// NodeStream handles GET /v1/nodes/stream?nodes=a,b with Server-Sent Events
func (h *Handler) NodeStream(c *fiber.Ctx) error {
	nodes, err := h.nodeList(c.UserContext(), c.Query("nodes"))
	if err != nil {
		return err
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no")

	// The fiber context is released once the handler returns; the stream
	// ends when a write to the client fails.
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		h.logger.Debug("Status stream opened", "nodes", nodes)
		sse := services.NewSSEWriter(w)
		if err := h.stream.Stream(ctx, nodes, sse); err != nil {
			h.logger.Debug("Status stream closed", "nodes", nodes, "error", err)
			return
		}
		h.logger.Debug("Status stream closed", "nodes", nodes)
	})
	return nil
}

func (h *Handler) nodeList(ctx context.Context, param string) ([]string, error) {
	nodes := models.ParseNodeList(param)
	if len(nodes) == 0 && h.nodes != nil {
		ids, err := h.nodes.NodeIDs(ctx)
		if err != nil {
			return nil, services.NewServiceError(services.CodeConfigUnavailable, "failed to list configured nodes: "+err.Error())
		}
		nodes = ids
	}
	if len(nodes) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "nodes is required")
	}
	for _, n := range nodes {
		if !models.IsNodeID(n) {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid node number: "+n)
		}
	}
	return nodes, nil
}
