package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/visionsmith/argus-api/internal/api"
	apiMiddleware "github.com/visionsmith/argus-api/internal/api/middleware"
)

// setupRouter configures the application router: classification
// endpoints behind the client API key, administrative queue endpoints
// behind operator JWTs, and unauthenticated stats and health probes.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	classifyHandler := api.NewClassifyHandler(app.classificationService)
	opsHandler := api.NewOpsHandler(app.scheduler)

	apiKeyMiddleware := apiMiddleware.NewAPIKeyMiddleware(app.apiKeyVerifier)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Queue statistics are open to any caller that can reach the
		// service.
		r.Get("/queue/stats", opsHandler.QueueStats)

		// Classification endpoints (client API key)
		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware.Require)
			r.Post("/classify", classifyHandler.Classify)
			r.Post("/classifications", classifyHandler.CreateClassification)
			r.Get("/classifications/{id}", classifyHandler.GetClassification)
		})

		// Administrative endpoints (operator JWT)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/queue/clear", opsHandler.ClearQueue)
			r.Post("/queue/drain", opsHandler.DrainQueue)
		})
	})

	r.Get("/health", opsHandler.Health)

	return r
}
