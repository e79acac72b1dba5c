// Package token mints and validates the two JWT classes used for
// authentication: short-lived access tokens and long-lived refresh tokens.
// Each class is signed with its own secret, so a token of one class can
// never validate as the other even if an attacker replays it against the
// wrong endpoint.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Type discriminates the two token classes via an explicit claim.
type Type string

const (
	// TypeAccess marks short-lived tokens that authorize individual requests.
	TypeAccess Type = "access"

	// TypeRefresh marks long-lived tokens exchanged for new token pairs.
	TypeRefresh Type = "refresh"
)

// Validation failure reasons. Handlers must collapse all of these into a
// single uniform unauthenticated response -- the distinction exists only for
// logging and tests.
var (
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
	ErrWrongType        = errors.New("token type mismatch")
	ErrMalformed        = errors.New("token malformed")
)

// Claims is the fixed claim set carried by every minted token. Using a
// concrete struct instead of jwt.MapClaims means a missing field is a
// validation error, not a silent zero value.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType is the explicit access/refresh discriminator.
	TokenType Type `json:"type"`

	// SessionID binds a refresh token to its session row, so reuse of a
	// rotated-out token can revoke exactly the session it belonged to.
	// Empty on access tokens.
	SessionID string `json:"sid,omitempty"`
}

// Service signs and validates tokens. The two signing contexts are fully
// independent: separate secret, separate TTL.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	// now is injectable for expiry tests.
	now func() time.Time
}

// NewService creates a token service with the given secrets and lifetimes.
func NewService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// AccessTTL returns the configured access token lifetime (used for cookie max-age).
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// MintAccess creates a signed access token for the given subject.
func (s *Service) MintAccess(subject string) (string, error) {
	return s.mint(subject, "", TypeAccess, s.accessSecret, s.accessTTL)
}

// MintRefresh creates a signed refresh token bound to a session.
func (s *Service) MintRefresh(subject, sessionID string) (string, error) {
	return s.mint(subject, sessionID, TypeRefresh, s.refreshSecret, s.refreshTTL)
}

func (s *Service) mint(subject, sessionID string, typ Type, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: typ,
		SessionID: sessionID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Validate parses and verifies a token against the secret for the expected
// type. It returns the claims on success, or one of ErrInvalidSignature,
// ErrExpired, ErrWrongType, ErrMalformed.
func (s *Service) Validate(tokenString string, expected Type) (*Claims, error) {
	secret := s.accessSecret
	if expected == TypeRefresh {
		secret = s.refreshSecret
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}
	if !tok.Valid {
		return nil, ErrInvalidSignature
	}

	if claims.TokenType != expected {
		return nil, ErrWrongType
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	if expected == TypeRefresh && claims.SessionID == "" {
		return nil, ErrMalformed
	}

	return claims, nil
}
