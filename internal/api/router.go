package api

import (
	"net/http"

	"github.com/ashureev/coin-gallery/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Routes groups the handlers mounted by NewRouter.
type Routes struct {
	Gallery *GalleryHandler
	Edit    *EditHandler
	Health  *HealthHandler
	Live    http.Handler
	Static  http.Handler
}

// NewRouter builds the gallery's HTTP router with the global middleware
// stack.
func NewRouter(routes Routes) chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.SecurityHeaders)

	routes.Health.RegisterHealth(r)
	routes.Gallery.RegisterRoutes(r)
	routes.Edit.RegisterRoutes(r)

	if routes.Live != nil {
		r.Get("/ws/updates", routes.Live.ServeHTTP)
	}
	if routes.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", routes.Static))
	}
	return r
}
