package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-triage/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Tickets  *handlers.TicketsHandler
	Agent    *handlers.AgentHandler
	Config   *handlers.ConfigHandler
	Articles *handlers.ArticlesHandler
	// Gatherer backs /metrics; nil skips the route.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	tickets := app.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/replies", cfg.Tickets.AddReply)
	tickets.Get("/:id/audit", cfg.Tickets.ListAudit)

	agent := app.Group("/agent")
	agent.Post("/triage", cfg.Agent.Triage)
	agent.Get("/suggestion/:ticketId", cfg.Agent.Suggestion)

	app.Get("/config", cfg.Config.Get)
	app.Put("/config", cfg.Config.Update)

	kb := app.Group("/kb/articles")
	kb.Post("/", cfg.Articles.Create)
	kb.Get("/", cfg.Articles.Search)
	kb.Get("/:id", cfg.Articles.Get)
}
