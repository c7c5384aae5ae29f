package handlers

import (
	"unity-upload-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Handlers carries the services the HTTP layer talks to. Nothing here
// touches a store directly.
type Handlers struct {
	Bans     *services.BanRegistry
	Sweeper  *services.Sweeper
	Uploads  *services.UploadStore
	Winners  *services.WinnerPicker
	VoiceLog *services.VoiceLog
	Reports  *services.ReportLog
	PlayFab  *services.PlayFabClient
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": msg})
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}
