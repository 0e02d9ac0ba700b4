package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-triage/internal/api/http/handlers"
	"github.com/spec-kit/ticket-triage/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Webhook        *handlers.WebhookHandler
	Admin          *handlers.AdminHandler
	Demo           *handlers.DemoHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/webhook/helpdesk", cfg.Webhook.HandleTicketEvent)

	app.Post("/demo/classify", cfg.Demo.Classify)
	app.Post("/demo/answer", cfg.Demo.Answer)

	admin := app.Group("/admin")
	admin.Post("/auth/login", cfg.Admin.Login)

	protected := admin.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/stats", cfg.Admin.Stats)
	protected.Get("/analytics", cfg.Admin.Analytics)
	protected.Post("/tickets/:id/reprocess", cfg.Admin.Reprocess)
}
