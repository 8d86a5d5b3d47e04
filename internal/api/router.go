package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"

	"github.com/matjarly/dispatch-core/internal/api/handler"
	"github.com/matjarly/dispatch-core/internal/api/middleware"
	"github.com/matjarly/dispatch-core/internal/api/ws"
	"github.com/matjarly/dispatch-core/internal/core/domain"
	"github.com/matjarly/dispatch-core/internal/core/ports"
	"github.com/matjarly/dispatch-core/internal/core/tracker"
)

// Deps carries the constructed services the router wires into handlers.
type Deps struct {
	JWTSecret string

	Auth      ports.AuthService
	Shipments ports.ShipmentService
	Dispatch  ports.DispatchService
	Geocoder  ports.Geocoder
	TextGen   ports.TextGenerator
	Tracker   *tracker.Manager

	Health    *handler.HealthHandler
	Readiness *handler.HealthDependenciesHandler
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("dispatch"))

	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	authHandler := handler.NewAuthHandler(deps.Auth)
	dispatchHandler := handler.NewDispatchHandler(deps.Shipments, deps.Dispatch, deps.Tracker)
	geocodeHandler := handler.NewGeocodeHandler(deps.Geocoder)
	contentHandler := handler.NewContentHandler(deps.TextGen)
	feed := ws.NewFeed(deps.Tracker, deps.Dispatch, log)

	auth := middleware.Auth(deps.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Driver dispatch surface ---
	dispatch := e.Group("/v1/dispatch", auth, middleware.RBAC(domain.RoleDriver))
	dispatch.GET("/orders", dispatchHandler.ListOrders)
	dispatch.POST("/orders/:id/advance", dispatchHandler.Advance)
	dispatch.GET("/orders/:id/route", dispatchHandler.Route)
	dispatch.POST("/location", dispatchHandler.UpdateLocation)
	dispatch.GET("/feed", feed.Handle)

	// --- Geocoding surface ---
	geo := e.Group("/v1/geo", auth, middleware.RBAC(domain.RoleAdmin, domain.RoleDriver))
	geo.GET("/geocode", geocodeHandler.Geocode)
	geo.GET("/reverse", geocodeHandler.ReverseGeocode)
	geo.GET("/share-code/:code", geocodeHandler.ResolveCode)
	geo.POST("/validate", geocodeHandler.ValidateAddress)
	geo.POST("/distance", geocodeHandler.Distance)
	e.GET("/v1/geo/test", geocodeHandler.TestConnection, auth, middleware.RBAC(domain.RoleAdmin))

	// --- Content generation ---
	e.POST("/v1/content/description", contentHandler.Describe, auth, middleware.RBAC(domain.RoleAdmin))

	// --- Observability (no auth required) ---
	e.GET("/health", deps.Health.Liveness)
	e.GET("/health/ready", deps.Readiness.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
