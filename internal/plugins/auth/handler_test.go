package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskbin/taskbin/internal/apperror"
	"github.com/taskbin/taskbin/internal/ratelimit"
	"github.com/taskbin/taskbin/internal/validate"
)

func newTestHandler(service AuthService, limiter *ratelimit.Limiter) *Handler {
	return NewHandler(service, limiter, 30*time.Minute, 7*24*time.Hour, false)
}

// newHandlerContext builds an Echo context with the validator wired, a JSON
// body, and a fixed client address.
func newHandlerContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = validate.New()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.RemoteAddr = "192.0.2.10:44812"

	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// clearedCookies returns the names of cookies the response expires.
func clearedCookies(rec *httptest.ResponseRecorder) []string {
	var names []string
	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			names = append(names, cookie.Name)
		}
	}
	return names
}

func TestRefreshHandler_ClearsCookiesOnRejectedToken(t *testing.T) {
	service := &mockAuthService{
		refreshFn: func(ctx context.Context, refreshToken string) (*TokenPair, error) {
			return nil, apperror.NewUnauthorized("invalid or expired refresh token")
		},
	}
	h := newTestHandler(service, ratelimit.New())

	c, rec := newHandlerContext(t, http.MethodPost, "/api/auth/refresh", "")
	c.Request().AddCookie(&http.Cookie{Name: "refresh_token", Value: "stale-token"})

	err := h.Refresh(c)
	assertAppError(t, err, 401)
	if got := clearedCookies(rec); len(got) != 2 {
		t.Errorf("expected both auth cookies cleared, got %v", got)
	}
}

func TestRefreshHandler_KeepsCookiesOnInternalError(t *testing.T) {
	service := &mockAuthService{
		refreshFn: func(ctx context.Context, refreshToken string) (*TokenPair, error) {
			return nil, apperror.NewInternal(nil)
		},
	}
	h := newTestHandler(service, ratelimit.New())

	c, rec := newHandlerContext(t, http.MethodPost, "/api/auth/refresh", "")
	c.Request().AddCookie(&http.Cookie{Name: "refresh_token", Value: "still-valid-token"})

	// A transient backend fault must not sign the browser out; the token may
	// still be perfectly good.
	err := h.Refresh(c)
	assertAppError(t, err, 500)
	if got := clearedCookies(rec); len(got) != 0 {
		t.Errorf("expected cookies untouched on internal error, got %v", got)
	}
}

func TestRefreshHandler_SetsCookiesOnSuccess(t *testing.T) {
	service := &mockAuthService{
		refreshFn: func(ctx context.Context, refreshToken string) (*TokenPair, error) {
			return &TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
		},
	}
	h := newTestHandler(service, ratelimit.New())

	c, rec := newHandlerContext(t, http.MethodPost, "/api/auth/refresh", "")
	c.Request().AddCookie(&http.Cookie{Name: "refresh_token", Value: "old-refresh"})

	if err := h.Refresh(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := map[string]string{}
	for _, cookie := range rec.Result().Cookies() {
		got[cookie.Name] = cookie.Value
	}
	if got["access_token"] != "new-access" || got["refresh_token"] != "new-refresh" {
		t.Errorf("expected rotated pair in cookies, got %v", got)
	}
}

func TestLoginHandler_ResetsLoginLimiterKey(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, input LoginInput, client ClientInfo) (*User, *TokenPair, error) {
			return &User{ID: "user-123", Email: input.Email},
				&TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
		},
	}
	limiter := ratelimit.New()
	h := newTestHandler(service, limiter)

	// Exhaust the same key the login route's rate limit middleware admits on.
	key := actionLogin + ":192.0.2.10"
	for i := 0; i < 5; i++ {
		limiter.Allow(key, 5, 15*time.Minute)
	}
	if limiter.Allow(key, 5, 15*time.Minute) {
		t.Fatal("expected key to be exhausted before login")
	}

	c, _ := newHandlerContext(t, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"correct-password"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The successful login must have forgiven the earlier attempts.
	if !limiter.Allow(key, 5, 15*time.Minute) {
		t.Error("expected login limiter key to be reset after successful login")
	}
}
