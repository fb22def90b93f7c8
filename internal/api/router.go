package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/todo-system/docs"
	"github.com/99minutos/todo-system/internal/api/handler"
	"github.com/99minutos/todo-system/internal/api/middleware"
	"github.com/99minutos/todo-system/internal/core/ports"
	"github.com/99minutos/todo-system/internal/core/security"
)

// Dependencies groups everything the router needs. Limiter and Checks are
// optional.
type Dependencies struct {
	Auth    ports.AuthService
	Todos   ports.TodoService
	Limiter handler.LoginLimiter
	Checks  map[string]handler.Check
	Log     zerolog.Logger
	// Registerer receives the HTTP request metrics. Defaults to the global
	// Prometheus registry, which also backs /metrics.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "todo",
		Registerer: registerer,
	}))

	// --- Probes, metrics and docs (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(deps.Checks).Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/api/v1")

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.Limiter, deps.Log)
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh-token", authHandler.RefreshToken)

	// --- Todo routes ---
	todoHandler := handler.NewTodoHandler(deps.Todos)
	elevated := middleware.RequireTier(security.TierElevated)
	standard := middleware.RequireTier(security.TierElevatedOrStandard)

	todos := v1.Group("/todos", middleware.Auth(deps.Auth))
	todos.POST("", todoHandler.Create, elevated)
	todos.GET("", todoHandler.List, elevated)
	todos.GET("/:id", todoHandler.Get, standard)
	todos.PUT("/:id", todoHandler.Update, elevated)
	todos.DELETE("/:id", todoHandler.Delete, elevated)
	todos.PATCH("/:id", todoHandler.Toggle, standard)

	return e
}

// requestLogger writes one zerolog entry per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Status >= 400:
				ev = log.Warn()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
