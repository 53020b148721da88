package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/utils"
)

// Link handles POST /v1/nodes/:node/link
func (h *Handler) Link(c *fiber.Ctx) error {
	node, err := nodeParam(c)
	if err != nil {
		return err
	}

	var req models.LinkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to parse request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, cancel := requestContext(c, utils.DefaultRequestTimeout)
	defer cancel()

	result, err := h.control.SwitchLink(ctx, node, req.Remote, req.Action, req.Permanent)
	if err != nil {
		return err
	}
	h.logger.Debug("Link request served", "node", node, "ip", c.IP())
	return c.JSON(result)
}

// DTMF handles POST /v1/nodes/:node/dtmf
func (h *Handler) DTMF(c *fiber.Ctx) error {
	node, err := nodeParam(c)
	if err != nil {
		return err
	}

	var req models.DTMFRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to parse request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, cancel := requestContext(c, utils.DefaultRequestTimeout)
	defer cancel()

	result, err := h.control.SendDTMF(ctx, node, req.Digits)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// RptStats handles GET /v1/nodes/:node/rptstats
func (h *Handler) RptStats(c *fiber.Ctx) error {
	node, err := nodeParam(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c, utils.DefaultRequestTimeout)
	defer cancel()

	result, err := h.control.RptStats(ctx, node)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// LinkStats handles GET /v1/nodes/:node/lstats
func (h *Handler) LinkStats(c *fiber.Ctx) error {
	node, err := nodeParam(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c, utils.DefaultRequestTimeout)
	defer cancel()

	result, err := h.control.LinkStats(ctx, node)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Registrations handles GET /v1/nodes/:node/registrations
func (h *Handler) Registrations(c *fiber.Ctx) error {
	node, err := nodeParam(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c, utils.DefaultRequestTimeout)
	defer cancel()

	result, err := h.control.Registrations(ctx, node)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Voter handles GET /v1/nodes/:node/voter
func (h *Handler) Voter(c *fiber.Ctx) error {
	node, err := nodeParam(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c, utils.DefaultRequestTimeout)
	defer cancel()

	result, err := h.control.Voter(ctx, node)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Reload handles POST /v1/nodes/:node/reload
func (h *Handler) Reload(c *fiber.Ctx) error {
	node, err := nodeParam(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c, utils.DefaultRequestTimeout)
	defer cancel()

	result, err := h.control.Reload(ctx, node)
	if err != nil {
		return err
	}
	h.logger.Info("Asterisk reload requested", "node", node, "success", result.Success, "ip", c.IP())
	return c.JSON(result)
}
