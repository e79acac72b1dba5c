package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/taskbin/taskbin/internal/config"
	"github.com/taskbin/taskbin/internal/middleware"
	"github.com/taskbin/taskbin/internal/ratelimit"
)

// Limiter actions for the guarded endpoints. Each action gets its own
// sliding window per client IP. actionLogin is shared with the handler's
// forgiveness path: a successful login resets the same key the login route
// admits on.
const (
	actionLogin    = "login"
	actionRegister = "register"
	actionReset    = "reset"
	actionResend   = "resend"
)

// RegisterRoutes sets up all auth routes on the given API group. The
// RequireAuth middleware is exported separately for other plugins to use on
// their route groups.
//
// Credential-bearing endpoints sit behind per-action sliding-window limits
// keyed by client IP, so a limited login attempt does not consume the
// register or reset budget of the same address.
func RegisterRoutes(api *echo.Group, h *Handler, limiter *ratelimit.Limiter, rl config.RateLimitConfig, authed echo.MiddlewareFunc) {
	g := api.Group("/auth")

	// Public routes.
	g.POST("/register", h.Register, middleware.RateLimit(limiter, actionRegister, rl.RegisterMax, rl.RegisterWindow))
	g.POST("/login", h.Login, middleware.RateLimit(limiter, actionLogin, rl.LoginMax, rl.LoginWindow))
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.POST("/password-reset/request", h.RequestPasswordReset, middleware.RateLimit(limiter, actionReset, rl.ResetMax, rl.ResetWindow))
	g.POST("/password-reset/confirm", h.ConfirmPasswordReset)
	g.POST("/verify-email", h.VerifyEmail)
	g.POST("/verify-email/resend", h.ResendVerification, middleware.RateLimit(limiter, actionResend, rl.ResendMax, rl.ResendWindow))

	// Routes that need an authenticated principal.
	g.GET("/me", h.Me, authed)
	g.PATCH("/me", h.UpdateMe, authed)
	g.POST("/password", h.ChangePassword, authed)
	g.GET("/sessions", h.ListSessions, authed)
	g.DELETE("/sessions", h.RevokeOtherSessions, authed)
	g.DELETE("/sessions/:id", h.RevokeSession, authed)
	g.DELETE("/account", h.DeleteAccount, authed)
}
