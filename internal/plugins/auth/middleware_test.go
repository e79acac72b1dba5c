package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskbin/taskbin/internal/apperror"
	"github.com/taskbin/taskbin/internal/token"
)

// mockAuthService implements AuthService for middleware and handler tests.
// Methods without a function field return zero values.
type mockAuthService struct {
	loginFn            func(ctx context.Context, input LoginInput, client ClientInfo) (*User, *TokenPair, error)
	refreshFn          func(ctx context.Context, refreshToken string) (*TokenPair, error)
	resolvePrincipalFn func(ctx context.Context, userID string) (*Principal, error)
}

func (m *mockAuthService) Register(ctx context.Context, input RegisterInput, client ClientInfo) (*User, *TokenPair, error) {
	return nil, nil, nil
}
func (m *mockAuthService) Login(ctx context.Context, input LoginInput, client ClientInfo) (*User, *TokenPair, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, input, client)
	}
	return nil, nil, nil
}
func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return nil, nil
}
func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error { return nil }
func (m *mockAuthService) ResolvePrincipal(ctx context.Context, userID string) (*Principal, error) {
	if m.resolvePrincipalFn != nil {
		return m.resolvePrincipalFn(ctx, userID)
	}
	return &Principal{ID: userID, Email: "alice@example.com", DisplayName: "Alice"}, nil
}
func (m *mockAuthService) UpdateProfile(ctx context.Context, userID, displayName string) (*User, error) {
	return nil, nil
}
func (m *mockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, currentRefreshToken string) error {
	return nil
}
func (m *mockAuthService) RequestPasswordReset(ctx context.Context, email string) error { return nil }
func (m *mockAuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	return nil
}
func (m *mockAuthService) VerifyEmail(ctx context.Context, rawToken string) error       { return nil }
func (m *mockAuthService) ResendVerification(ctx context.Context, email string) error   { return nil }
func (m *mockAuthService) DeleteAccount(ctx context.Context, userID, password string) error {
	return nil
}
func (m *mockAuthService) ListSessions(ctx context.Context, userID, currentRefreshToken string) ([]SessionInfo, error) {
	return nil, nil
}
func (m *mockAuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	return nil
}
func (m *mockAuthService) RevokeOtherSessions(ctx context.Context, userID, currentRefreshToken string) error {
	return nil
}
func (m *mockAuthService) SweepExpired(ctx context.Context) error                    { return nil }
func (m *mockAuthService) StartSweeper(ctx context.Context, interval time.Duration)  {}

// runRequireAuth sends a request through RequireAuth and reports whether the
// inner handler ran, plus the error and response recorder.
func runRequireAuth(t *testing.T, tokens *token.Service, service AuthService, configure func(*http.Request)) (bool, error, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
	if configure != nil {
		configure(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handlerRan := false
	handler := RequireAuth(tokens, service)(func(c echo.Context) error {
		handlerRan = true
		return c.NoContent(http.StatusOK)
	})
	err := handler(c)
	return handlerRan, err, rec
}

func TestRequireAuth_ValidCookie(t *testing.T) {
	tokens := newTestTokens()
	access, err := tokens.MintAccess("user-123")
	if err != nil {
		t.Fatalf("minting access token: %v", err)
	}

	ran, err, _ := runRequireAuth(t, tokens, &mockAuthService{}, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: access})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("expected inner handler to run")
	}
}

func TestRequireAuth_ValidBearerHeader(t *testing.T) {
	tokens := newTestTokens()
	access, _ := tokens.MintAccess("user-123")

	ran, err, _ := runRequireAuth(t, tokens, &mockAuthService{}, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+access)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("expected inner handler to run")
	}
}

func TestRequireAuth_CookieWinsOverHeader(t *testing.T) {
	tokens := newTestTokens()
	cookieToken, _ := tokens.MintAccess("cookie-user")
	headerToken, _ := tokens.MintAccess("header-user")

	var resolved string
	service := &mockAuthService{
		resolvePrincipalFn: func(ctx context.Context, userID string) (*Principal, error) {
			resolved = userID
			return &Principal{ID: userID}, nil
		},
	}

	_, err, _ := runRequireAuth(t, tokens, service, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: cookieToken})
		req.Header.Set("Authorization", "Bearer "+headerToken)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != "cookie-user" {
		t.Errorf("expected cookie token to take precedence, resolved %q", resolved)
	}
}

func TestRequireAuth_UniformFailures(t *testing.T) {
	tokens := newTestTokens()
	refresh, _ := tokens.MintRefresh("user-123", "session-1")

	wrongService := token.NewService(
		"other-access-secret-0123456789abcd",
		"other-refresh-secret-0123456789abc",
		30*time.Minute, 7*24*time.Hour,
	)
	foreign, _ := wrongService.MintAccess("user-123")

	cases := []struct {
		name      string
		configure func(*http.Request)
		service   AuthService
	}{
		{
			name:      "no credentials",
			configure: nil,
			service:   &mockAuthService{},
		},
		{
			name: "garbage token",
			configure: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer not-a-jwt")
			},
			service: &mockAuthService{},
		},
		{
			name: "wrong signature",
			configure: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+foreign)
			},
			service: &mockAuthService{},
		},
		{
			name: "refresh token in access slot",
			configure: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+refresh)
			},
			service: &mockAuthService{},
		},
		{
			name: "deleted subject",
			configure: func(req *http.Request) {
				access, _ := tokens.MintAccess("ghost")
				req.Header.Set("Authorization", "Bearer "+access)
			},
			service: &mockAuthService{
				resolvePrincipalFn: func(ctx context.Context, userID string) (*Principal, error) {
					return nil, apperror.NewUnauthorized("authentication required")
				},
			},
		},
	}

	var messages []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ran, err, rec := runRequireAuth(t, tokens, tc.service, tc.configure)
			if ran {
				t.Error("inner handler must not run")
			}
			assertAppError(t, err, 401)
			if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
				t.Errorf("expected WWW-Authenticate: Bearer, got %q", got)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				messages = append(messages, appErr.Message)
			}
		})
	}

	// Every failure mode must produce the identical message.
	for i := 1; i < len(messages); i++ {
		if messages[i] != messages[0] {
			t.Errorf("failure messages differ: %q vs %q", messages[0], messages[i])
		}
	}
}

func TestRequireAuth_InternalErrorPassesThrough(t *testing.T) {
	tokens := newTestTokens()
	access, _ := tokens.MintAccess("user-123")

	service := &mockAuthService{
		resolvePrincipalFn: func(ctx context.Context, userID string) (*Principal, error) {
			return nil, apperror.NewInternal(nil)
		},
	}

	ran, err, _ := runRequireAuth(t, tokens, service, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: access})
	})
	if ran {
		t.Error("inner handler must not run")
	}
	assertAppError(t, err, 500)
}

func TestGetPrincipal_Unauthenticated(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if p := GetPrincipal(c); p != nil {
		t.Errorf("expected nil principal, got %+v", p)
	}
	if id := GetUserID(c); id != "" {
		t.Errorf("expected empty user ID, got %q", id)
	}
}
