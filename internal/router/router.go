package router // package router defines how HTTP routes are registered for the API

import (
	"strings"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/movie-catalog/internal/handler" // import the handlers that implement the catalog operations
)

// RegisterRoutes registers the operational routes on the provided Echo
// instance.  At the moment it only exposes a health check backed by a
// database ping.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	// Map GET /healthz to the Health handler.  Load balancers and monitoring
	// systems use it to verify the service can reach its database.
	e.GET("/healthz", handler.Health(db))
}

// RegisterMovies registers the movie CRUD routes under base (e.g. "/movies").
// List and create answer on both "<base>" and "<base>/".  The given
// middleware (rate limiting) applies to every movie route.
func RegisterMovies(e *echo.Echo, base string, h *handler.MovieHandler, mw ...echo.MiddlewareFunc) {
	base = "/" + strings.Trim(base, "/")
	g := e.Group(base, mw...)
	// Collection routes, with and without the trailing slash.
	g.GET("", h.List)
	g.GET("/", h.List)
	g.POST("", h.Create)
	g.POST("/", h.Create)
	// Single movie routes.
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// RegisterLookups registers the read-only lookup listings.
func RegisterLookups(e *echo.Echo, h *handler.LookupHandler, mw ...echo.MiddlewareFunc) {
	e.GET("/countries", h.Countries, mw...)
	e.GET("/genres", h.Genres, mw...)
	e.GET("/actors", h.Actors, mw...)
	e.GET("/languages", h.Languages, mw...)
}
