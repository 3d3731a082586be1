package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wzatco/helpdesk-sla/internal/api/http/handlers"
	"github.com/wzatco/helpdesk-sla/internal/auth"
	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// RouteConfig bundles handler dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Policies       *handlers.PoliciesHandler
	SLA            *handlers.SLAHandler
	Lifecycle      *handlers.LifecycleHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires handlers to HTTP routes.
func RegisterRoutes(app *fiber.App, rc RouteConfig) {
	app.Get("/health/live", rc.Health.Live)
	app.Get("/health/ready", rc.Health.Ready)

	admin := app.Group("/admin/sla/policies", rc.AuthMiddleware.Handle, auth.RequireSubject(domain.SubjectTypeAdmin))
	admin.Post("/", rc.Policies.Create)
	admin.Get("/", rc.Policies.List)
	admin.Get("/:id", rc.Policies.Get)
	admin.Patch("/:id", rc.Policies.Update)
	admin.Delete("/:id", rc.Policies.Delete)
	admin.Post("/:id/default", rc.Policies.SetDefault)

	tickets := app.Group("/tickets", rc.AuthMiddleware.Handle)
	tickets.Get("/:id/sla", rc.SLA.GetTimerStatus)

	hooks := app.Group("/internal/sla/tickets", rc.AuthMiddleware.Handle, auth.RequireSubject(domain.SubjectTypeService))
	hooks.Post("/:id/created", rc.Lifecycle.TicketCreated)
	hooks.Post("/:id/first-response", rc.Lifecycle.FirstResponse)
	hooks.Post("/:id/status-changed", rc.Lifecycle.StatusChanged)
	hooks.Post("/:id/deleted", rc.Lifecycle.TicketDeleted)
}
