package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"unity-upload-backend/internal/clock"
	"unity-upload-backend/internal/config"
	"unity-upload-backend/internal/database"
	"unity-upload-backend/internal/handlers"
	"unity-upload-backend/internal/logger"
	"unity-upload-backend/internal/middleware"
	"unity-upload-backend/internal/routes"
	"unity-upload-backend/internal/services"
	"unity-upload-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const voiceLogTrimInterval = 10 * time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if err == config.ErrConfigGenerated {
			logger.Success("Generated default %s", *configPath)
			logger.Warn("Review the settings, then restart the server.")
			os.Exit(0)
		}
		logger.Fatal("Config load failed: %v", err)
	}

	if cfg.Logging.File != "" {
		os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755)
		f, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logger.Fatal("Failed to open log file: %v", err)
		}
		defer f.Close()
		logger.SetFile(f)
	}
	logger.SetDebug(cfg.Logging.Debug)

	log.SetOutput(logger.NewStdLogger())
	log.SetFlags(0)

	if err := database.Connect(&cfg.Database); err != nil {
		logger.Fatal("Database connection failed: %v", err)
	}
	logger.Success("Database connected (%s)", cfg.Database.Driver)

	var banStore store.Store
	switch cfg.Bans.Store {
	case config.BanStoreDatabase:
		banStore, err = store.NewSQLStore(database.DB)
	default:
		banStore, err = store.NewFileStore(cfg.Bans.File)
	}
	if err != nil {
		logger.Fatal("Ban store init failed: %v", err)
	}

	registry, err := services.NewBanRegistry(banStore, clock.System)
	if err != nil {
		logger.Fatal("Ban registry load failed: %v", err)
	}

	var pf *services.PlayFabClient
	if cfg.PlayFab.Enabled() {
		pf = services.NewPlayFabClient(cfg.PlayFab.TitleID, cfg.PlayFab.SecretKey, time.Duration(cfg.PlayFab.Timeout)*time.Second)
		registry.OnRevoke(pf.RevokeHook())
		logger.Success("PlayFab unban sync enabled for title %s", cfg.PlayFab.TitleID)
	}

	uploads, err := services.NewUploadStore(cfg.Uploads.Directory, cfg.Uploads.QuotaBytes(), cfg.Uploads.Extension, clock.System)
	if err != nil {
		logger.Fatal("Upload store init failed: %v", err)
	}
	voiceLog, err := services.NewVoiceLog(cfg.VoiceLog.File, cfg.VoiceLog.MaxBytes, clock.System)
	if err != nil {
		logger.Fatal("Voice log init failed: %v", err)
	}

	sweeper := services.NewSweeper(registry, cfg.Bans.Interval())
	sweeper.AddJob("voice", voiceLogTrimInterval, voiceLog.Trim)
	sweeper.Start()

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		BurstLimit:        cfg.RateLimit.Burst,
		ProxyTrust:        middleware.ParseProxyTrust(cfg.RateLimit.ProxyTrust),
	})
	limiter.StartCleanup()

	app := fiber.New(fiber.Config{
		ProxyHeader:           cfg.Server.ProxyHeader,
		BodyLimit:             cfg.Server.BodyLimitMB << 20,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	routes.SetupRoutes(app, &handlers.Handlers{
		Bans:     registry,
		Sweeper:  sweeper,
		Uploads:  uploads,
		Winners:  services.NewWinnerPicker(uploads, clock.System),
		VoiceLog: voiceLog,
		Reports:  services.NewReportLog(database.DB),
		PlayFab:  pf,
	}, limiter)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Warn("Shutting down...")
		if err := app.Shutdown(); err != nil {
			logger.Error("HTTP shutdown: %v", err)
		}
	}()

	logger.Success("Server listening on %s", cfg.Server.Address())
	if err := app.Listen(cfg.Server.Address()); err != nil {
		logger.Fatal("Server error: %v", err)
	}

	limiter.StopCleanup()
	sweeper.Stop()
	if err := registry.Close(); err != nil {
		logger.Error("Ban registry close: %v", err)
	}
	database.Close()
	logger.Success("Bye")
}
