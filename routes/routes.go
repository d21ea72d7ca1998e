package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/order-protection/app"
	"github.com/upb/order-protection/handlers"
	"github.com/upb/order-protection/middleware"
	"github.com/upb/order-protection/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StorefrontSession)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	}

	// CORS for the storefront origins. Credentials let the browser send the
	// cart cookie, which browsers refuse with a wildcard origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: !allowsAnyOrigin(cfg.CORS.AllowedOrigins),
		MaxAge:           300,
	}))

	var (
		events handlers.EventReader
		stats  handlers.AuditStats
	)
	if deps.Audit != nil {
		events = deps.Audit
		stats = deps.Audit
	}

	health := handlers.NewHealthHandler(nil, deps.Logger)
	if deps.DB != nil {
		health = handlers.NewHealthHandler(deps.DB.DB, deps.Logger)
	}
	status := handlers.NewStatusHandler(handlers.StatusInfo{
		Version:     app.Version,
		Environment: cfg.Environment,
		Platform:    deps.Platform.Name,
	}, stats)
	protection := handlers.NewProtectionHandler(deps.Protection, events, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", status.HandleStatus)

		r.Route("/protection", func(r chi.Router) {
			if deps.AuthMiddleware != nil {
				r.Use(deps.AuthMiddleware.RequireAuth)
			}
			r.Get("/cart", protection.HandleGetCart)
			r.Get("/variants", protection.HandleGetVariants)
			r.Post("/", protection.HandleEnable)
			r.Delete("/", protection.HandleDisable)
			r.Put("/attributes", protection.HandleSetAttributes)
			r.Get("/events", protection.HandleListEvents)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
