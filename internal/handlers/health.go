package handlers

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/supermon-ng/supermon-ng/internal/models"
)

// Health handles health check requests
func (h *Handler) Health(c *fiber.Ctx) error {
	resp := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
		Checks:    map[string]string{},
	}

	if h.index != nil {
		resp.ASTDB = &models.ASTDBHealth{Records: h.index.Len()}
		if at := h.index.LoadedAt(); !at.IsZero() {
			resp.ASTDB.LoadedAt = at.UTC().Format(time.RFC3339)
		}
		if h.index.Len() == 0 {
			resp.Status = "degraded"
			resp.Checks["astdb"] = "empty"
		} else {
			resp.Checks["astdb"] = "ok"
		}
	}

	if h.pool != nil {
		stats := h.pool.Stats()
		sort.Slice(stats, func(i, j int) bool { return stats[i].Key < stats[j].Key })
		for _, s := range stats {
			resp.Pool = append(resp.Pool, models.PoolHealth{Key: s.Key, Idle: s.Idle, InUse: s.InUse, Max: s.Max})
		}
		resp.Checks["ami_pool"] = "ok"
	} else {
		resp.Checks["ami_pool"] = "shell"
	}

	return c.JSON(resp)
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
