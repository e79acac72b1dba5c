package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taskbin/taskbin/internal/apperror"
	"github.com/taskbin/taskbin/internal/credential"
	"github.com/taskbin/taskbin/internal/token"
)

// principalKeyPrefix is the Redis key prefix for cached principals.
const principalKeyPrefix = "principal:"

// Single-use token lifetimes. Both flows deliver the raw token by mail, so
// a generous window keeps slow inboxes usable while the used/expired checks
// still bound the damage.
const (
	resetTokenTTL        = 24 * time.Hour
	verificationTokenTTL = 24 * time.Hour
)

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repositories directly.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput, client ClientInfo) (*User, *TokenPair, error)
	Login(ctx context.Context, input LoginInput, client ClientInfo) (*User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ResolvePrincipal(ctx context.Context, userID string) (*Principal, error)
	UpdateProfile(ctx context.Context, userID, displayName string) (*User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword, currentRefreshToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	VerifyEmail(ctx context.Context, rawToken string) error
	ResendVerification(ctx context.Context, email string) error
	DeleteAccount(ctx context.Context, userID, password string) error
	ListSessions(ctx context.Context, userID, currentRefreshToken string) ([]SessionInfo, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
	RevokeOtherSessions(ctx context.Context, userID, currentRefreshToken string) error
	SweepExpired(ctx context.Context) error
	StartSweeper(ctx context.Context, interval time.Duration)
}

// MailSender is the slice of the mail package this service needs.
type MailSender interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
	IsConfigured(ctx context.Context) bool
}

// authService implements AuthService with bcrypt credentials, JWT pairs,
// database-backed refresh sessions, and a Redis principal cache.
type authService struct {
	users    UserRepository
	sessions SessionRepository
	tokens   *token.Service
	mail     MailSender
	redis    *redis.Client
	baseURL  string
	cacheTTL time.Duration

	// now is injectable for expiry tests.
	now func() time.Time
}

// NewAuthService creates a new auth service with the given dependencies.
// mail and rdb may be nil; token delivery then logs a warning and principal
// resolution goes straight to the database.
func NewAuthService(users UserRepository, sessions SessionRepository, tokens *token.Service, mail MailSender, rdb *redis.Client, baseURL string, cacheTTL time.Duration) AuthService {
	return &authService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		mail:     mail,
		redis:    rdb,
		baseURL:  baseURL,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Register creates a new user account, stores a verification token, and
// issues the first session so the user is signed in immediately.
func (s *authService) Register(ctx context.Context, input RegisterInput, client ClientInfo) (*User, *TokenPair, error) {
	email := normalizeEmail(input.Email)

	// Check if email is already taken before doing expensive hashing.
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, nil, apperror.NewConflict("an account with this email already exists")
	}

	hash, err := credential.Hash(input.Password)
	if err != nil {
		return nil, nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can win the unique email key between the
		// EmailExists check and the insert; the repository reports that as
		// Conflict and it goes to the caller as such.
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, nil, err
		}
		return nil, nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	// Verification mail is best-effort; a failed send must not lose the
	// freshly created account.
	if err := s.issueVerificationToken(ctx, user); err != nil {
		slog.Warn("failed to issue verification token",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	pair, err := s.issueSession(ctx, user.ID, client)
	if err != nil {
		return nil, nil, apperror.NewInternal(fmt.Errorf("issuing session: %w", err))
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, pair, nil
}

// Login authenticates a user by email and password. Every failure mode
// (unknown email, wrong password) yields the same error so callers cannot
// probe which accounts exist.
func (s *authService) Login(ctx context.Context, input LoginInput, client ClientInfo) (*User, *TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, apperror.NewUnauthorized("invalid email or password")
		}
		return nil, nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !credential.Verify(input.Password, user.PasswordHash) {
		return nil, nil, apperror.NewUnauthorized("invalid email or password")
	}

	pair, err := s.issueSession(ctx, user.ID, client)
	if err != nil {
		return nil, nil, apperror.NewInternal(fmt.Errorf("issuing session: %w", err))
	}

	// Update the user's last login timestamp (fire-and-forget, non-critical).
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair, rotating the
// session's stored digest. A token that verifies but matches no session row
// was already rotated out; that is reuse, and the session it names is
// revoked so the holder of the live token is signed out too.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Validate(refreshToken, token.TypeRefresh)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid or expired refresh token")
	}

	digest := credential.Digest(refreshToken)
	sess, err := s.sessions.FindByTokenDigest(ctx, digest)
	if err != nil {
		if apperror.IsNotFound(err) {
			s.revokeOnReuse(ctx, claims.SessionID, claims.Subject)
			return nil, apperror.NewUnauthorized("invalid or expired refresh token")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding session: %w", err))
	}

	if s.now().After(sess.ExpiresAt) {
		_ = s.sessions.Revoke(ctx, sess.ID, sess.UserID)
		return nil, apperror.NewUnauthorized("invalid or expired refresh token")
	}

	newRefresh, err := s.tokens.MintRefresh(sess.UserID, sess.ID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("minting refresh token: %w", err))
	}

	expiresAt := s.now().UTC().Add(s.tokens.RefreshTTL())
	err = s.sessions.Rotate(ctx, sess.ID, sess.UserID, digest, credential.Digest(newRefresh), expiresAt)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Lost a rotation race: someone else just used this token.
			s.revokeOnReuse(ctx, sess.ID, sess.UserID)
			return nil, apperror.NewUnauthorized("invalid or expired refresh token")
		}
		return nil, apperror.NewInternal(fmt.Errorf("rotating session: %w", err))
	}

	access, err := s.tokens.MintAccess(sess.UserID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("minting access token: %w", err))
	}

	return &TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// revokeOnReuse tears down the session named by a reused refresh token and
// leaves an audit trail in the log.
func (s *authService) revokeOnReuse(ctx context.Context, sessionID, userID string) {
	if sessionID == "" || userID == "" {
		return
	}
	if err := s.sessions.Revoke(ctx, sessionID, userID); err != nil {
		slog.Error("failed to revoke session after token reuse",
			slog.String("session_id", sessionID),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return
	}
	slog.Warn("refresh token reuse detected, session revoked",
		slog.String("session_id", sessionID),
		slog.String("user_id", userID),
	)
}

// Logout revokes the session behind the presented refresh token. An invalid
// token is not an error; the outcome the caller wants (no usable session)
// already holds.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	sess, err := s.sessions.FindByTokenDigest(ctx, credential.Digest(refreshToken))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return apperror.NewInternal(fmt.Errorf("finding session: %w", err))
	}

	if err := s.sessions.Revoke(ctx, sess.ID, sess.UserID); err != nil {
		return apperror.NewInternal(fmt.Errorf("revoking session: %w", err))
	}

	slog.Info("user logged out", slog.String("user_id", sess.UserID))
	return nil
}

// ResolvePrincipal turns a token subject into the current principal, going
// through the Redis cache first. A subject whose account was deleted after
// the token was minted resolves to the same uniform unauthenticated error
// as a bad token.
func (s *authService) ResolvePrincipal(ctx context.Context, userID string) (*Principal, error) {
	if p := s.cachedPrincipal(ctx, userID); p != nil {
		return p, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("authentication required")
		}
		return nil, apperror.NewInternal(fmt.Errorf("resolving principal: %w", err))
	}

	p := &Principal{
		ID:            user.ID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		EmailVerified: user.EmailVerified,
	}
	s.cachePrincipal(ctx, p)
	return p, nil
}

// UpdateProfile changes the user's display name and drops the stale cached
// principal.
func (s *authService) UpdateProfile(ctx context.Context, userID, displayName string) (*User, error) {
	if err := s.users.UpdateDisplayName(ctx, userID, strings.TrimSpace(displayName)); err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating profile: %w", err))
	}

	s.invalidatePrincipal(ctx, userID)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reloading user: %w", err))
	}
	return user, nil
}

// ChangePassword verifies the current password, stores the new hash, and
// revokes every other session. The session presenting currentRefreshToken
// survives so the user is not logged out of the device they acted from.
func (s *authService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, currentRefreshToken string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewUnauthorized("authentication required")
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !credential.Verify(currentPassword, user.PasswordHash) {
		return apperror.NewUnauthorized("current password is incorrect")
	}

	hash, err := credential.Hash(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	// Keep the acting session when we can identify it; otherwise drop all.
	keepID := ""
	if currentRefreshToken != "" {
		if sess, err := s.sessions.FindByTokenDigest(ctx, credential.Digest(currentRefreshToken)); err == nil && sess.UserID == userID {
			keepID = sess.ID
		}
	}
	if keepID != "" {
		err = s.sessions.RevokeAllExcept(ctx, userID, keepID)
	} else {
		err = s.sessions.RevokeAll(ctx, userID)
	}
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("revoking sessions: %w", err))
	}

	s.invalidatePrincipal(ctx, userID)

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// RequestPasswordReset stores a reset token digest and mails the raw token.
// The outcome is identical whether or not the email exists, so the endpoint
// cannot be used to enumerate accounts.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	rawToken, err := credential.NewToken()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("generating reset token: %w", err))
	}

	expiresAt := s.now().UTC().Add(resetTokenTTL)
	if err := s.users.CreateResetToken(ctx, user.ID, user.Email, credential.Digest(rawToken), expiresAt); err != nil {
		return apperror.NewInternal(fmt.Errorf("storing reset token: %w", err))
	}

	if s.mail == nil || !s.mail.IsConfigured(ctx) {
		slog.Warn("password reset requested but mail is not configured",
			slog.String("user_id", user.ID),
		)
		return nil
	}

	link := s.baseURL + "/reset-password?token=" + rawToken
	body := fmt.Sprintf("Hello %s,\n\nA password reset was requested for your account. "+
		"Open the link below within 24 hours to choose a new password:\n\n%s\n\n"+
		"If you did not request this, you can ignore this message.\n", user.DisplayName, link)

	if err := s.mail.SendMail(ctx, []string{user.Email}, "Reset your password", body); err != nil {
		slog.Error("failed to send reset mail",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	return nil
}

// ResetPassword consumes a reset token: validates it, stores the new hash,
// marks the token used, and revokes every session for the account.
func (s *authService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	digest := credential.Digest(rawToken)

	userID, _, expiresAt, usedAt, err := s.users.FindResetToken(ctx, digest)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewBadRequest("invalid or expired reset token")
		}
		return apperror.NewInternal(fmt.Errorf("finding reset token: %w", err))
	}
	if usedAt != nil {
		return apperror.NewBadRequest("invalid or expired reset token")
	}
	if s.now().After(expiresAt) {
		return apperror.NewBadRequest("invalid or expired reset token")
	}

	hash, err := credential.Hash(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}
	if err := s.users.MarkResetTokenUsed(ctx, digest); err != nil {
		return apperror.NewInternal(fmt.Errorf("marking token used: %w", err))
	}

	// Whoever triggered the reset may not be the only holder of a session.
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return apperror.NewInternal(fmt.Errorf("revoking sessions: %w", err))
	}

	s.invalidatePrincipal(ctx, userID)

	slog.Info("password reset completed", slog.String("user_id", userID))
	return nil
}

// VerifyEmail consumes a verification token and flags the account verified.
func (s *authService) VerifyEmail(ctx context.Context, rawToken string) error {
	digest := credential.Digest(rawToken)

	userID, expiresAt, err := s.users.FindVerificationToken(ctx, digest)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewBadRequest("invalid or expired verification token")
		}
		return apperror.NewInternal(fmt.Errorf("finding verification token: %w", err))
	}
	if s.now().After(expiresAt) {
		return apperror.NewBadRequest("invalid or expired verification token")
	}

	if err := s.users.MarkEmailVerified(ctx, userID); err != nil {
		return apperror.NewInternal(fmt.Errorf("marking email verified: %w", err))
	}
	if err := s.users.DeleteVerificationToken(ctx, digest); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting verification token: %w", err))
	}

	s.invalidatePrincipal(ctx, userID)

	slog.Info("email verified", slog.String("user_id", userID))
	return nil
}

// ResendVerification issues a fresh verification token. Unknown and
// already-verified addresses succeed silently for the same anti-enumeration
// reason as password reset.
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	if user.EmailVerified {
		return nil
	}

	// Invalidate older links so only the newest mail works.
	if err := s.users.DeleteVerificationTokensForUser(ctx, user.ID); err != nil {
		return apperror.NewInternal(fmt.Errorf("clearing verification tokens: %w", err))
	}

	if err := s.issueVerificationToken(ctx, user); err != nil {
		return apperror.NewInternal(fmt.Errorf("issuing verification token: %w", err))
	}
	return nil
}

// DeleteAccount removes the account after a password confirmation. Sessions,
// single-use tokens, and todos cascade away with the user row.
func (s *authService) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewUnauthorized("authentication required")
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !credential.Verify(password, user.PasswordHash) {
		return apperror.NewUnauthorized("password is incorrect")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting user: %w", err))
	}

	s.invalidatePrincipal(ctx, userID)

	slog.Info("account deleted", slog.String("user_id", userID))
	return nil
}

// ListSessions returns the user's live sessions for the device overview.
// The session presenting currentRefreshToken is flagged so clients can warn
// before self-revocation.
func (s *authService) ListSessions(ctx context.Context, userID, currentRefreshToken string) ([]SessionInfo, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing sessions: %w", err))
	}

	currentDigest := ""
	if currentRefreshToken != "" {
		currentDigest = credential.Digest(currentRefreshToken)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, SessionInfo{
			ID:           sess.ID,
			IPAddress:    sess.IPAddress,
			UserAgent:    sess.UserAgent,
			CreatedAt:    sess.CreatedAt,
			LastActivity: sess.LastActivity,
			ExpiresAt:    sess.ExpiresAt,
			Current:      currentDigest != "" && sess.RefreshTokenHash == currentDigest,
		})
	}
	return infos, nil
}

// RevokeSession signs one of the user's devices out. Revoking an already-gone
// session succeeds; the caller wanted it gone and it is.
func (s *authService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID, userID); err != nil {
		return apperror.NewInternal(fmt.Errorf("revoking session: %w", err))
	}
	slog.Info("session revoked",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return nil
}

// RevokeOtherSessions signs out every device except the one making the call.
// Without an identifiable current session it revokes everything.
func (s *authService) RevokeOtherSessions(ctx context.Context, userID, currentRefreshToken string) error {
	keepID := ""
	if currentRefreshToken != "" {
		if sess, err := s.sessions.FindByTokenDigest(ctx, credential.Digest(currentRefreshToken)); err == nil && sess.UserID == userID {
			keepID = sess.ID
		}
	}

	var err error
	if keepID != "" {
		err = s.sessions.RevokeAllExcept(ctx, userID, keepID)
	} else {
		err = s.sessions.RevokeAll(ctx, userID)
	}
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("revoking other sessions: %w", err))
	}

	slog.Info("other sessions revoked", slog.String("user_id", userID))
	return nil
}

// SweepExpired purges expired sessions and single-use tokens.
func (s *authService) SweepExpired(ctx context.Context) error {
	sessions, err := s.sessions.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweeping sessions: %w", err)
	}
	resets, err := s.users.DeleteExpiredResetTokens(ctx)
	if err != nil {
		return fmt.Errorf("sweeping reset tokens: %w", err)
	}
	verifications, err := s.users.DeleteExpiredVerificationTokens(ctx)
	if err != nil {
		return fmt.Errorf("sweeping verification tokens: %w", err)
	}

	if sessions+resets+verifications > 0 {
		slog.Info("auth sweep completed",
			slog.Int64("sessions", sessions),
			slog.Int64("reset_tokens", resets),
			slog.Int64("verification_tokens", verifications),
		)
	}
	return nil
}

// StartSweeper runs SweepExpired on a ticker until the context is cancelled.
func (s *authService) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.SweepExpired(ctx); err != nil {
					slog.Error("auth sweep failed", slog.Any("error", err))
				}
			}
		}
	}()
}

// --- Session issuance ---

// issueSession creates a session row and mints the token pair for it.
func (s *authService) issueSession(ctx context.Context, userID string, client ClientInfo) (*TokenPair, error) {
	sessionID := uuid.NewString()

	refresh, err := s.tokens.MintRefresh(userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("minting refresh token: %w", err)
	}

	now := s.now().UTC()
	sess := &Session{
		ID:               sessionID,
		UserID:           userID,
		RefreshTokenHash: credential.Digest(refresh),
		IPAddress:        client.IPAddress,
		UserAgent:        client.UserAgent,
		CreatedAt:        now,
		LastActivity:     now,
		ExpiresAt:        now.Add(s.tokens.RefreshTTL()),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	access, err := s.tokens.MintAccess(userID)
	if err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// issueVerificationToken stores a verification token digest and mails the
// raw token to the user.
func (s *authService) issueVerificationToken(ctx context.Context, user *User) error {
	rawToken, err := credential.NewToken()
	if err != nil {
		return fmt.Errorf("generating verification token: %w", err)
	}

	expiresAt := s.now().UTC().Add(verificationTokenTTL)
	if err := s.users.CreateVerificationToken(ctx, user.ID, credential.Digest(rawToken), expiresAt); err != nil {
		return fmt.Errorf("storing verification token: %w", err)
	}

	if s.mail == nil || !s.mail.IsConfigured(ctx) {
		slog.Warn("verification token issued but mail is not configured",
			slog.String("user_id", user.ID),
		)
		return nil
	}

	link := s.baseURL + "/verify-email?token=" + rawToken
	body := fmt.Sprintf("Hello %s,\n\nConfirm your email address by opening the link below "+
		"within 24 hours:\n\n%s\n", user.DisplayName, link)

	if err := s.mail.SendMail(ctx, []string{user.Email}, "Verify your email", body); err != nil {
		slog.Error("failed to send verification mail",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	return nil
}

// --- Principal cache ---

// cachedPrincipal reads the principal from Redis, or nil on miss or when
// Redis is unavailable.
func (s *authService) cachedPrincipal(ctx context.Context, userID string) *Principal {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, principalKeyPrefix+userID).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("principal cache read failed", slog.Any("error", err))
		}
		return nil
	}
	var p Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	return &p
}

// cachePrincipal writes the principal to Redis with the configured TTL.
// Cache failures are logged and ignored; the database remains authoritative.
func (s *authService) cachePrincipal(ctx context.Context, p *Principal) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, principalKeyPrefix+p.ID, data, s.cacheTTL).Err(); err != nil {
		slog.Warn("principal cache write failed", slog.Any("error", err))
	}
}

// invalidatePrincipal drops the cached principal after any mutation that
// changes what downstream handlers would see.
func (s *authService) invalidatePrincipal(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, principalKeyPrefix+userID).Err(); err != nil {
		slog.Warn("principal cache invalidation failed", slog.Any("error", err))
	}
}

// normalizeEmail trims surrounding whitespace. The address is otherwise
// stored and compared exactly as submitted: email is a case-sensitive key,
// so User@example.com and user@example.com are distinct accounts.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
