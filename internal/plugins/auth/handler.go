package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskbin/taskbin/internal/apperror"
	"github.com/taskbin/taskbin/internal/ratelimit"
)

// Handler handles HTTP requests for authentication. Handlers are thin: they
// bind the request, call the service, and render the response. No business
// logic lives here.
type Handler struct {
	service       AuthService
	limiter       *ratelimit.Limiter
	accessTTL     time.Duration
	refreshTTL    time.Duration
	secureCookies bool
}

// NewHandler creates a new auth handler. secureCookies should be true in any
// environment served over HTTPS (everything except local development).
func NewHandler(service AuthService, limiter *ratelimit.Limiter, accessTTL, refreshTTL time.Duration, secureCookies bool) *Handler {
	return &Handler{
		service:       service,
		limiter:       limiter,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

// clientInfo captures the request origin for the session row.
func clientInfo(c echo.Context) ClientInfo {
	return ClientInfo{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// Register creates an account and signs the user in (POST /auth/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, pair, err := h.service.Register(c.Request().Context(), RegisterInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	}, clientInfo(c))
	if err != nil {
		return err
	}

	setAuthCookies(c, pair, h.accessTTL, h.refreshTTL, h.secureCookies)
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"user":   user,
		"tokens": pair,
	})
}

// Login authenticates and issues a fresh session (POST /auth/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, pair, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, clientInfo(c))
	if err != nil {
		return err
	}

	// A successful login forgives earlier failed attempts from this client.
	h.limiter.Reset(actionLogin + ":" + c.RealIP())

	setAuthCookies(c, pair, h.accessTTL, h.refreshTTL, h.secureCookies)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":   user,
		"tokens": pair,
	})
}

// Refresh rotates the session and returns a new pair (POST /auth/refresh).
// The refresh token comes from the cookie, or from the body for non-browser
// clients.
func (h *Handler) Refresh(c echo.Context) error {
	refreshToken := readRefreshToken(c)
	if refreshToken == "" {
		var req RefreshRequest
		if err := c.Bind(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}
	if refreshToken == "" {
		c.Response().Header().Set("WWW-Authenticate", "Bearer")
		return apperror.NewUnauthorized("invalid or expired refresh token")
	}

	pair, err := h.service.Refresh(c.Request().Context(), refreshToken)
	if err != nil {
		// Drop the cookies only when the token itself was rejected. On an
		// internal fault the token may still be valid, and clearing it would
		// sign the browser out over a transient outage.
		if apperror.SafeCode(err) == http.StatusUnauthorized {
			clearAuthCookies(c, h.secureCookies)
		}
		return err
	}

	setAuthCookies(c, pair, h.accessTTL, h.refreshTTL, h.secureCookies)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tokens": pair,
	})
}

// Logout revokes the current session and clears cookies (POST /auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	if refreshToken := readRefreshToken(c); refreshToken != "" {
		// Revoke best-effort; the cookies are cleared regardless.
		_ = h.service.Logout(c.Request().Context(), refreshToken)
	}

	clearAuthCookies(c, h.secureCookies)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated principal (GET /auth/me).
func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, GetPrincipal(c))
}

// UpdateMe updates the profile (PATCH /auth/me).
func (h *Handler) UpdateMe(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), GetUserID(c), req.DisplayName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword changes the password of the authenticated user
// (POST /auth/password). Every other session is revoked.
func (h *Handler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err := h.service.ChangePassword(c.Request().Context(), GetUserID(c),
		req.CurrentPassword, req.NewPassword, readRefreshToken(c))
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RequestPasswordReset starts the forgot-password flow
// (POST /auth/password-reset/request). Always answers 202.
func (h *Handler) RequestPasswordReset(c echo.Context) error {
	var req PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.service.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "If an account exists for that address, a reset link has been sent.",
	})
}

// ConfirmPasswordReset completes the forgot-password flow
// (POST /auth/password-reset/confirm).
func (h *Handler) ConfirmPasswordReset(c echo.Context) error {
	var req PasswordResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.service.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// VerifyEmail consumes a verification token (POST /auth/verify-email).
func (h *Handler) VerifyEmail(c echo.Context) error {
	var req VerifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.service.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ResendVerification re-sends the verification mail
// (POST /auth/verify-email/resend). Always answers 202.
func (h *Handler) ResendVerification(c echo.Context) error {
	var req ResendVerificationRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.service.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "If the address needs verification, a new link has been sent.",
	})
}

// ListSessions returns the caller's active sessions (GET /auth/sessions).
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context(), GetUserID(c), readRefreshToken(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// RevokeSession signs one device out (DELETE /auth/sessions/:id).
func (h *Handler) RevokeSession(c echo.Context) error {
	if err := h.service.RevokeSession(c.Request().Context(), GetUserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeOtherSessions signs out every device except the caller's
// (DELETE /auth/sessions).
func (h *Handler) RevokeOtherSessions(c echo.Context) error {
	err := h.service.RevokeOtherSessions(c.Request().Context(), GetUserID(c), readRefreshToken(c))
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteAccount deletes the authenticated account (DELETE /auth/account).
func (h *Handler) DeleteAccount(c echo.Context) error {
	var req DeleteAccountRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.service.DeleteAccount(c.Request().Context(), GetUserID(c), req.Password); err != nil {
		return err
	}

	clearAuthCookies(c, h.secureCookies)
	return c.NoContent(http.StatusNoContent)
}
