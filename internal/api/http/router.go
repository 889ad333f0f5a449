package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/factory-report-service/internal/api/http/handlers"
	"github.com/spec-kit/factory-report-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Auth           *handlers.AuthHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Auth.Logout)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Auth.Me)

	reports := app.Group("/reports", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	reports.Get("/", cfg.Reports.ListReports)
	reports.Post("/", cfg.Reports.CreateReport)
	// registered before /:id so "stats" is not taken as an id
	reports.Get("/stats", cfg.Reports.Stats)
	reports.Get("/:id", cfg.Reports.GetReport)
	reports.Get("/:id/history", cfg.Reports.ReportHistory)
	reports.Put("/:id", cfg.Reports.UpdateReport)
	reports.Delete("/:id", cfg.Reports.DeleteReport)
	reports.Post("/:id/claim", cfg.Reports.ClaimReport)
	reports.Post("/:id/resolve", cfg.Reports.ResolveReport)
	reports.Post("/:id/reassign", cfg.Reports.ReassignReport)
}
