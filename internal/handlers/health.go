package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func (h *Handlers) Health(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":      "ok",
		"timestamp":   h.Bans.Clock().Now().Unix(),
		"service":     "unity-upload-backend",
		"version":     "1.0.0",
		"active_bans": len(h.Bans.ListActive()),
	}
	if h.Sweeper != nil {
		resp["sweeper"] = h.Sweeper.Stats()
	}
	return c.JSON(resp)
}
