package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supermon-ng/supermon-ng/internal/utils"
)

// System handles GET /v1/system
func (h *Handler) System(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, utils.DefaultRequestTimeout)
	defer cancel()

	info, err := h.system.Info(ctx)
	if err != nil {
		return err
	}
	return c.JSON(info)
}
