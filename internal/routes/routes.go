package routes

import (
	"unity-upload-backend/internal/handlers"
	"unity-upload-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(app *fiber.App, h *handlers.Handlers, limiter *middleware.RateLimiter) {
	app.Get("/", h.Dashboard)
	app.Get("/health", h.Health)
	app.Static("/files", h.Uploads.Dir())

	// game client endpoints
	limit := limiter.Handler()
	app.Post("/upload", limit, h.UploadMap)
	app.Post("/voice-log", limit, h.AppendVoiceLog)
	app.Post("/report", limit, h.CreateReport)

	api := app.Group("/api")

	bans := api.Group("/bans")
	bans.Get("/", h.ListBans)
	bans.Post("/", h.CreateBan)
	bans.Get("/check/:playerId", h.CheckBan)
	bans.Post("/revoke", h.RevokeBan)
	bans.Post("/sweep", h.SweepBans)

	uploads := api.Group("/uploads")
	uploads.Get("/", h.ListUploads)
	uploads.Delete("/:filename", h.DeleteUpload)
	uploads.Post("/delete", h.DeleteUploads)

	winners := api.Group("/winners")
	winners.Get("/", h.GetWinners)
	winners.Post("/", h.PickWinners)
	winners.Delete("/", h.ResetWinners)

	api.Get("/voice-log", h.GetVoiceLog)
	api.Post("/playfab/unban", h.UnbanPlayFab)
	api.Get("/reports", h.ListReports)
}
