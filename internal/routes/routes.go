package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ml4ch/CoSESWeather/internal/config"
	"github.com/ml4ch/CoSESWeather/internal/handlers"
	"github.com/ml4ch/CoSESWeather/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	verifier middleware.Verifier,
	systemHandler *handlers.SystemHandler,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	auditHandler *handlers.AuditHandler,
	exportHandler *handlers.ExportHandler,
	readingHandler *handlers.ReadingHandler,
	conditionsHandler *handlers.ConditionsHandler,
	dispatchHandler *handlers.DispatchHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)
	app.Post("/api/dispatch", dispatchHandler.Dispatch)

	// The controller polls without credentials.
	app.Get("/api/station/commands/next", auditHandler.NextCommand)

	// ─── Auth ────────────────────────────────────────────────────────────
	app.Post("/api/auth/login", authHandler.Login)
	app.Put("/api/auth/password", authHandler.ChangePassword)

	// ─── Station (token) ─────────────────────────────────────────────────
	station := app.Group("/api/station", middleware.StationProtected(cfg.StationJWTSecret))
	station.Post("/readings", readingHandler.InsertReading)
	station.Post("/readings/archive", readingHandler.ClaimArchiveBatch)
	station.Get("/admin-emails", accountHandler.AdminEmails)

	// ─── Live conditions (WebSocket) ─────────────────────────────────────
	app.Use("/api/ws/conditions", conditionsHandler.UpgradeCheck())
	app.Get("/api/ws/conditions", conditionsHandler.Stream())

	// ─── Any account ─────────────────────────────────────────────────────
	data := app.Group("/api/data", middleware.Gate(verifier, false))
	data.Get("/conditions", readingHandler.Latest)
	data.Post("/export", exportHandler.Export)

	// ─── Admin accounts ──────────────────────────────────────────────────
	admin := app.Group("/api/admin", middleware.Gate(verifier, true))

	admin.Get("/accounts", accountHandler.ListAccounts)
	admin.Post("/accounts", accountHandler.CreateAccount)
	admin.Delete("/accounts/:email", accountHandler.DeleteAccount)
	admin.Put("/accounts/:email/password", accountHandler.ResetPassword)
	admin.Put("/accounts/:email/privilege", accountHandler.SetPrivilege)

	admin.Get("/audit", auditHandler.ListAuditLogs)
	admin.Post("/commands", auditHandler.IssueCommand)
}
