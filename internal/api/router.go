package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/corphub/events-api/docs"
	"github.com/corphub/events-api/internal/api/handler"
	"github.com/corphub/events-api/internal/api/middleware"
	"github.com/corphub/events-api/internal/core/ports"
	opshttp "github.com/corphub/events-api/internal/infrastructure/http"
	"github.com/corphub/events-api/internal/infrastructure/http/handlers"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Log        zerolog.Logger
	JWTSecret  string
	Auth       ports.AuthService
	Events     ports.EventService
	Membership ports.MembershipService
	Queries    ports.QueryService
	// Registry receives the HTTP metrics. The scrape endpoint also exposes
	// the default registry, where the business metrics live. Nil creates a
	// private registry.
	Registry *prometheus.Registry
	Checks   []handlers.Check
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: reg,
	}))

	authHandler := handler.NewAuthHandler(d.Auth)
	eventHandler := handler.NewEventHandler(d.Events, d.Membership, d.Queries)
	requireAuth := middleware.Auth(d.JWTSecret)

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// --- Event routes ---
	events := e.Group("/api/events")
	events.GET("", eventHandler.List)
	events.POST("/create", eventHandler.Create, requireAuth)
	events.GET("/search-users", eventHandler.SearchUsers, requireAuth)
	events.PUT("/edit/:eventId", eventHandler.Edit, requireAuth)
	events.GET("/:eventId", eventHandler.Get, requireAuth)
	events.POST("/:eventId/add-attendee", eventHandler.AddAttendee, requireAuth)
	events.DELETE("/:eventId/remove-attendee/:userId", eventHandler.RemoveAttendee, requireAuth)
	events.POST("/:eventId/add-guest", eventHandler.AddGuest, requireAuth)
	events.DELETE("/:eventId/remove-guest/:guestId", eventHandler.RemoveGuest, requireAuth)

	// --- Ops: health probes, metrics, docs (no auth required) ---
	opshttp.RegisterOps(e, prometheus.Gatherers{reg, prometheus.DefaultGatherer}, d.Checks...)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
