package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Cookie names for the token pair. HttpOnly keeps them out of reach of
// page scripts; SameSite=Strict keeps cross-site requests from carrying
// them, which also covers CSRF for the state-changing endpoints.
const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

// setAuthCookies writes the token pair to the response. Each cookie's MaxAge
// matches its token's TTL so the browser drops it when the token dies.
func setAuthCookies(c echo.Context, pair *TokenPair, accessTTL, refreshTTL time.Duration, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(accessTTL.Seconds()),
	})
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(refreshTTL.Seconds()),
	})
}

// clearAuthCookies removes both cookies by setting MaxAge to -1 on the same
// path they were set with.
func clearAuthCookies(c echo.Context, secure bool) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   -1,
		})
	}
}

// readAccessToken returns the access token from the request: cookie first,
// then the Authorization header for non-browser clients. The cookie wins
// when both are present.
func readAccessToken(c echo.Context) string {
	if cookie, err := c.Cookie(accessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bearerToken(c)
}

// readRefreshToken returns the refresh token from the cookie, or empty.
func readRefreshToken(c echo.Context) string {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// bearerToken extracts a token from an "Authorization: Bearer x" header.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
