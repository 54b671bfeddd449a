package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/proroto/workorder-service/internal/api/http/handlers"
	"github.com/proroto/workorder-service/internal/auth"
	"github.com/proroto/workorder-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Users.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireRole())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Get("/:id/status-log", cfg.Tickets.StatusLog)
	tickets.Get("/:id/transitions", cfg.Tickets.Transitions)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)

	prefs := app.Group("/notification-preferences", cfg.AuthMiddleware.Handle, auth.RequireRole())
	prefs.Get("", cfg.Notifications.ListPreferences)
	prefs.Put("", cfg.Notifications.UpdatePreference)

	app.Post("/invitations", cfg.AuthMiddleware.Handle,
		auth.RequireRole(domain.RolePMAdmin), cfg.Notifications.CreateInvitation)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle,
		auth.RequireRole(domain.RoleContractorAdmin))
	admin.Get("/delivery-log", cfg.Notifications.DeliveryLog)
	admin.Get("/metrics", cfg.Health.Metrics)
}
