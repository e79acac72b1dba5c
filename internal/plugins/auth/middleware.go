package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/taskbin/taskbin/internal/apperror"
	"github.com/taskbin/taskbin/internal/token"
)

// Context keys for storing the resolved principal in Echo context. Other
// plugins use these keys (via the exported getter functions below) to access
// the authenticated user's identity.
const (
	contextKeyPrincipal = "auth_principal"
	contextKeyUserID    = "auth_user_id"
)

// RequireAuth returns middleware that authenticates the request and injects
// the resolved principal into the context. The access token is read from the
// cookie first, then from the Authorization header for non-browser clients.
//
// Missing token, bad signature, expiry, wrong token type, and a subject
// whose account no longer exists all produce the same 401 response, so a
// caller cannot learn which check failed.
func RequireAuth(tokens *token.Service, service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := readAccessToken(c)
			if raw == "" {
				return unauthenticated(c)
			}

			claims, err := tokens.Validate(raw, token.TypeAccess)
			if err != nil {
				return unauthenticated(c)
			}

			principal, err := service.ResolvePrincipal(c.Request().Context(), claims.Subject)
			if err != nil {
				if apperror.SafeCode(err) == 401 {
					return unauthenticated(c)
				}
				return err
			}

			// Store the identity in context for downstream handlers.
			c.Set(contextKeyPrincipal, principal)
			c.Set(contextKeyUserID, principal.ID)

			return next(c)
		}
	}
}

// unauthenticated produces the single uniform 401 response for every
// authentication failure, with the scheme hint non-browser clients expect.
func unauthenticated(c echo.Context) error {
	c.Response().Header().Set("WWW-Authenticate", "Bearer")
	return apperror.NewUnauthorized("authentication required")
}

// --- Exported getters for other plugins ---

// GetPrincipal retrieves the authenticated principal from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetPrincipal(c echo.Context) *Principal {
	principal, ok := c.Get(contextKeyPrincipal).(*Principal)
	if !ok {
		return nil
	}
	return principal
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}
