package handlers

import (
	"errors"

	"unity-upload-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

func (h *Handlers) PickWinners(c *fiber.Ctx) error {
	var req struct {
		Count int `json:"count" form:"count"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "count must be a number")
	}

	pick, err := h.Winners.Pick(req.Count)
	if err != nil {
		if errors.Is(err, services.ErrNoUploads) {
			return fail(c, fiber.StatusConflict, "No uploads to pick from")
		}
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, pick)
}

func (h *Handlers) GetWinners(c *fiber.Ctx) error {
	pick, found := h.Winners.Last()
	if !found {
		return fail(c, fiber.StatusNotFound, "No winners picked")
	}
	return ok(c, pick)
}

func (h *Handlers) ResetWinners(c *fiber.Ctx) error {
	h.Winners.Reset()
	return c.JSON(fiber.Map{"success": true, "message": "Winners reset"})
}
