package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskbin/taskbin/internal/mail"
	"github.com/taskbin/taskbin/internal/plugins/auth"
	"github.com/taskbin/taskbin/internal/plugins/todos"
)

// RegisterRoutes sets up all application routes. It constructs each plugin's
// repository/service/handler chain and delegates to the plugin's route
// registration function.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, its routes are registered here. The constructed auth
// service is returned so main can run its background sweeper.
func (a *App) RegisterRoutes() auth.AuthService {
	e := a.Echo

	// Health check endpoint for container health monitoring. Verifies both
	// backing stores are reachable.
	e.GET("/healthz", func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := a.DB.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "database unreachable"})
		}
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "redis unreachable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")

	// --- Auth plugin ---
	mailer := a.buildMailer()
	authService := auth.NewAuthService(
		auth.NewUserRepository(a.DB),
		auth.NewSessionRepository(a.DB),
		a.Tokens,
		mailer,
		a.Redis,
		a.Config.BaseURL,
		a.Config.Auth.PrincipalCacheTTL,
	)
	authHandler := auth.NewHandler(
		authService,
		a.Limiter,
		a.Config.Auth.AccessTTL,
		a.Config.Auth.RefreshTTL,
		!a.Config.IsDevelopment(),
	)
	authed := auth.RequireAuth(a.Tokens, authService)
	auth.RegisterRoutes(api, authHandler, a.Limiter, a.Config.RateLimit, authed)

	// --- Todos plugin ---
	todoService := todos.NewTodoService(todos.NewTodoRepository(a.DB))
	todos.RegisterRoutes(api, todos.NewHandler(todoService), authed)

	return authService
}

// buildMailer selects SMTP delivery when a relay host is configured, and
// the logging fallback otherwise so local development never needs a relay.
func (a *App) buildMailer() mail.Mailer {
	smtp := a.Config.SMTP
	if smtp.Host == "" {
		return mail.NewLogMailer()
	}
	return mail.NewSMTPMailer(smtp.Host, smtp.Port, smtp.Username, smtp.Password, smtp.From)
}
