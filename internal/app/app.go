// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// limiter, Echo instance) and wires together all plugins.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/taskbin/taskbin/internal/apperror"
	"github.com/taskbin/taskbin/internal/config"
	"github.com/taskbin/taskbin/internal/middleware"
	"github.com/taskbin/taskbin/internal/ratelimit"
	"github.com/taskbin/taskbin/internal/token"
	"github.com/taskbin/taskbin/internal/validate"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis is the Redis client used for principal caching.
	Redis *redis.Client

	// Limiter is the shared sliding-window rate limiter.
	Limiter *ratelimit.Limiter

	// Tokens is the JWT mint/validate service.
	Tokens *token.Service

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Request validation for all c.Validate calls in handlers.
	e.Validator = validate.New()

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's IP. Rate limit keys and session IP
	// records depend on it.
	middleware.TrustedProxies(e, []string{
		"127.0.0.0/8",    // Localhost
		"10.0.0.0/8",     // Docker default bridge
		"172.16.0.0/12",  // Docker bridge (alternate range)
		"192.168.0.0/16", // Common LAN
		"fd00::/8",       // IPv6 private
	})

	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Limiter: ratelimit.New(),
		Tokens: token.NewService(
			cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret,
			cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL,
		),
		Echo: e,
	}

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options, etc.
	a.Echo.Use(middleware.SecurityHeaders())

	// CORS -- allow a browser frontend hosted on a separate origin to carry
	// the cookie pair.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{a.Config.BaseURL},
		AllowCredentials: true,
	}))
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to JSON responses. Rate-limit errors additionally carry the
// Retry-After header so well-behaved clients can back off precisely.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Echo's built-in HTTP errors (e.g., 404 from the router).
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			msg, ok := echoErr.Message.(string)
			if !ok {
				msg = http.StatusText(echoErr.Code)
			}
			appErr = &apperror.AppError{
				Code:    echoErr.Code,
				Type:    "http_error",
				Message: msg,
			}
		} else {
			// Truly unexpected error -- log it, surface a generic 500.
			slog.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Request().URL.Path),
			)
			appErr = apperror.NewInternal(err)
		}
	}

	// Log internal errors with the underlying cause.
	if appErr.Internal != nil {
		slog.Error("internal error",
			slog.String("type", appErr.Type),
			slog.String("message", appErr.Message),
			slog.Any("internal", appErr.Internal),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if appErr.RetryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}

	if writeErr := c.JSON(appErr.Code, appErr); writeErr != nil {
		slog.Error("failed to write error response", slog.Any("error", writeErr))
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting taskbin server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
