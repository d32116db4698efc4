package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ml4ch/CoSESWeather/internal/config"
	"github.com/ml4ch/CoSESWeather/internal/crypto"
	"github.com/ml4ch/CoSESWeather/internal/database"
	"github.com/ml4ch/CoSESWeather/internal/handlers"
	"github.com/ml4ch/CoSESWeather/internal/logger"
	"github.com/ml4ch/CoSESWeather/internal/middleware"
	"github.com/ml4ch/CoSESWeather/internal/repository"
	"github.com/ml4ch/CoSESWeather/internal/routes"
	"github.com/ml4ch/CoSESWeather/internal/services"
)

func main() {
	// ─── Config ──────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// ─── Logging ─────────────────────────────────────────────────────────
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "cosesweather-gateway")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting CoSESWeather gateway", zap.String("version", handlers.Version))

	if cfg.StationJWTSecret == "" {
		log.Warn("STATION_JWT_SECRET not set, station routes will reject every request")
	}

	// ─── Databases ───────────────────────────────────────────────────────
	db, err := database.Connect(cfg.DB, log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Database migration failed", zap.Error(err))
	}
	primaryPool, err := db.DB()
	if err != nil {
		log.Fatal("Database pool unavailable", zap.Error(err))
	}

	archiveDB, err := database.ConnectArchive(cfg.ArchiveDB, log)
	if err != nil {
		log.Fatal("Archive database connection failed", zap.Error(err))
	}

	// ─── Services ────────────────────────────────────────────────────────
	hasher, err := crypto.NewHasher(cfg.HashScheme)
	if err != nil {
		log.Fatal("Invalid hash scheme", zap.Error(err))
	}

	primary := repository.NewPrimary(db, log)
	archive := repository.NewArchive(archiveDB, log)

	verifier := services.NewCredentialVerifier(primary, hasher)
	auditLog := services.NewAuditLog(primary, log)
	accounts := services.NewAccountService(primary, verifier, log)
	readings := services.NewReadingService(primary, log)
	exporter := services.NewExportEngine(primary, archive, primary, cfg.HiLoConcurrency, log)

	bootstrapCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := accounts.Bootstrap(bootstrapCtx, cfg.BootstrapAdminName, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
	cancel()
	if err != nil {
		log.Fatal("Bootstrap admin creation failed", zap.Error(err))
	}
	if created {
		log.Info("Bootstrap admin account created", zap.String("email", cfg.BootstrapAdminEmail))
	}

	// ─── Handlers ────────────────────────────────────────────────────────
	systemHandler := handlers.NewSystemHandler(primaryPool, archiveDB)
	authHandler := handlers.NewAuthHandler(accounts)
	accountHandler := handlers.NewAccountHandler(accounts)
	auditHandler := handlers.NewAuditHandler(auditLog)
	exportHandler := handlers.NewExportHandler(exporter)
	readingHandler := handlers.NewReadingHandler(readings)
	conditionsHandler := handlers.NewConditionsHandler(verifier, readings, cfg.LiveInterval, log)
	dispatchHandler := handlers.NewDispatchHandler(verifier, cfg.StationJWTSecret,
		authHandler, accountHandler, auditHandler, exportHandler, readingHandler)

	// ─── Fiber App ───────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      "cosesweather v" + handlers.Version,
		ServerHeader: "cosesweather",
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: false,
	}))

	// Security headers
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	app.Use(middleware.RequestLogger(log, "/api/health"))

	// ─── Routes ──────────────────────────────────────────────────────────
	routes.Setup(app, cfg, verifier, systemHandler, authHandler, accountHandler,
		auditHandler, exportHandler, readingHandler, conditionsHandler, dispatchHandler)

	// ─── Graceful Shutdown ───────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down CoSESWeather gateway...")

		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Fiber shutdown error", zap.Error(err))
		}
		if err := database.Close(db); err != nil {
			log.Error("Database close error", zap.Error(err))
		}
		if err := archiveDB.Close(); err != nil {
			log.Error("Archive database close error", zap.Error(err))
		}
	}()

	// ─── Start ───────────────────────────────────────────────────────────
	listenAddr := ":" + cfg.Port
	log.Info("CoSESWeather gateway listening", zap.String("addr", listenAddr))

	if err := app.Listen(listenAddr); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
