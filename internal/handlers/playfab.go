package handlers

import (
	"strings"

	"unity-upload-backend/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// UnbanPlayFab lifts a PlayFab ban directly. Voice bans live only on
// PlayFab, so there is no local record to revoke.
func (h *Handlers) UnbanPlayFab(c *fiber.Ctx) error {
	if h.PlayFab == nil {
		return fail(c, fiber.StatusServiceUnavailable, "PlayFab is not configured")
	}

	var req struct {
		PlayFabID string `json:"playfabId" form:"playfabId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.PlayFabID = strings.TrimSpace(req.PlayFabID)
	if req.PlayFabID == "" {
		return fail(c, fiber.StatusBadRequest, "playfabId is required")
	}

	if err := h.PlayFab.UnbanUsers(c.UserContext(), req.PlayFabID); err != nil {
		logger.Error("[playfab] %v", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to unban on PlayFab")
	}
	logger.Success("[playfab] unbanned %s", req.PlayFabID)
	return ok(c, fiber.Map{"playfabId": req.PlayFabID})
}
