package router

import (
	"net/http"

	"mintgate-api/internal/handler"
	"mintgate-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	CatalogHandler *handler.CatalogHandler
	WindowHandler  *handler.WindowHandler
	MintHandler    *handler.MintHandler
	AuthHandler    *handler.AuthHandler
	OperatorAuth   func(http.Handler) http.Handler
}

// New creates and configures the HTTP router. Mint and all reads are
// public; catalog and window mutation sit behind operator auth.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Token"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.AuthHandler != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/token", cfg.AuthHandler.GenerateToken)
				r.Post("/revoke", cfg.AuthHandler.RevokeToken)
			})
		}

		// read surface
		if cfg.CatalogHandler != nil {
			r.Get("/catalog", cfg.CatalogHandler.List)
		}
		if cfg.WindowHandler != nil {
			r.Get("/windows", cfg.WindowHandler.List)
			r.Get("/windows/{id}", cfg.WindowHandler.Get)
			r.Get("/sale/active", cfg.WindowHandler.Active)
		}
		if cfg.MintHandler != nil {
			r.Get("/windows/{id}/minted/{recipient}", cfg.MintHandler.MintedCounts)
			r.Post("/mint", cfg.MintHandler.Mint)
		}

		// operator surface
		r.Group(func(r chi.Router) {
			if cfg.OperatorAuth != nil {
				r.Use(cfg.OperatorAuth)
			}
			if cfg.CatalogHandler != nil {
				r.Post("/catalog/types", cfg.CatalogHandler.AppendTypes)
			}
			if cfg.WindowHandler != nil {
				r.Post("/windows", cfg.WindowHandler.Create)
				r.Put("/windows/{id}", cfg.WindowHandler.Update)
				r.Delete("/windows/{id}", cfg.WindowHandler.Delete)
			}
		})
	})

	return r
}
