package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evalbridge/evalbridge/internal/middleware"
)

// registerRoutes registers all HTTP routes
func registerRoutes(app *fiber.App, deps *Dependencies) {
	// Health check routes (no auth required)
	deps.HealthHandler.RegisterRoutes(app)

	// Prometheus metrics (no auth required)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes: API key pair or operator JWT, scoped to a form via X-Form-ID
	v1 := app.Group("/v1")
	v1.Use(deps.AuthMiddleware.RequireAuth())
	v1.Use(middleware.FormScope())
	v1.Use(deps.RateLimitMiddleware.Handler())
	{
		// Operator tokens
		v1.Post("/auth/token", deps.AuthHandler.IssueToken)

		// Trace candidates
		v1.Get("/traces", deps.TracesHandler.ListCandidates)
		v1.Get("/traces/:traceId/scores", deps.ScoresHandler.ListByTrace)

		// Detail aggregation
		v1.Post("/aggregations", deps.AggregationsHandler.StartAggregation)
		v1.Get("/aggregations", deps.AggregationsHandler.GetState)
		v1.Get("/aggregations/candidates/:candidateId", deps.AggregationsHandler.SelectCandidate)

		// Evaluation sessions
		v1.Post("/evaluations/validate", deps.EvaluationsHandler.Validate)
		v1.Post("/evaluations/execute", deps.EvaluationsHandler.Execute)
		v1.Get("/evaluations/session", deps.EvaluationsHandler.GetSession)
		v1.Delete("/evaluations/session", deps.EvaluationsHandler.ResetSession)

		// Prompt templates
		v1.Post("/templates", deps.TemplatesHandler.Create)
		v1.Get("/templates", deps.TemplatesHandler.List)
		v1.Get("/templates/:templateId", deps.TemplatesHandler.Get)
		v1.Patch("/templates/:templateId", deps.TemplatesHandler.Update)
		v1.Delete("/templates/:templateId", deps.TemplatesHandler.Delete)

		// Reference datasets
		v1.Put("/references/:name", deps.ReferencesHandler.Put)
		v1.Get("/references/:name", deps.ReferencesHandler.Get)
		v1.Delete("/references/:name", deps.ReferencesHandler.Delete)

		// Audit log
		v1.Get("/audit", deps.AuditHandler.List)

		// Aggregation progress stream (SSE)
		v1.Get("/events", deps.EventsHandler.Stream)
	}
}
