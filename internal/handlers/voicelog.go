package handlers

import (
	"unity-upload-backend/internal/logger"

	"github.com/gofiber/fiber/v2"
)

func (h *Handlers) AppendVoiceLog(c *fiber.Ctx) error {
	var req struct {
		Name      string `json:"name" form:"name"`
		Reason    string `json:"reason" form:"reason"`
		PlayFabID string `json:"playfabId" form:"playfabId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	entry, err := h.VoiceLog.Append(req.Name, req.Reason, req.PlayFabID)
	if err != nil {
		logger.Error("[voice] %v", err)
		return fail(c, fiber.StatusInternalServerError, "Voice log could not be written")
	}
	logger.Info("[voice] %s", entry)
	return c.SendStatus(fiber.StatusOK)
}

func (h *Handlers) GetVoiceLog(c *fiber.Ctx) error {
	lines, err := h.VoiceLog.Recent(c.QueryInt("limit", 100))
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	if lines == nil {
		lines = []string{}
	}
	return ok(c, lines)
}
