package handlers

import (
	"errors"
	"net/url"

	"unity-upload-backend/internal/logger"
	"unity-upload-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

type banRequest struct {
	PlayerID        string `json:"playerId" form:"playerId"`
	Reason          string `json:"reason" form:"reason"`
	DurationMinutes int    `json:"durationMinutes" form:"durationMinutes"`
}

type revokeRequest struct {
	PlayerID string `json:"playerId" form:"playerId"`
}

func banError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAlreadyBanned):
		return fail(c, fiber.StatusConflict, "Player already banned")
	case errors.Is(err, services.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Ban not found")
	default:
		logger.Error("[bans] %v", err)
		return fail(c, fiber.StatusInternalServerError, "Ban list could not be saved")
	}
}

func (h *Handlers) CreateBan(c *fiber.Ctx) error {
	var req banRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	rec, err := h.Bans.Ban(req.PlayerID, req.Reason, req.DurationMinutes)
	if err != nil {
		return banError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": rec})
}

func (h *Handlers) CheckBan(c *fiber.Ctx) error {
	playerID, err := url.PathUnescape(c.Params("playerId"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid player ID")
	}
	return ok(c, h.Bans.Check(playerID))
}

func (h *Handlers) RevokeBan(c *fiber.Ctx) error {
	var req revokeRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.PlayerID == "" {
		return fail(c, fiber.StatusBadRequest, "playerId is required")
	}

	if err := h.Bans.Revoke(c.UserContext(), req.PlayerID); err != nil {
		return banError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "message": "Ban revoked"})
}

func (h *Handlers) ListBans(c *fiber.Ctx) error {
	return ok(c, h.Bans.ListActive())
}

func (h *Handlers) SweepBans(c *fiber.Ctx) error {
	removed, err := h.Sweeper.RunOnce()
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Sweep failed")
	}
	return ok(c, fiber.Map{"removed": removed})
}
