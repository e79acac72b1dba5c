package token

import (
	"errors"
	"testing"
	"time"
)

func newTestService() *Service {
	return NewService("access-secret-for-tests-0123456789", "refresh-secret-for-tests-987654321", 30*time.Minute, 7*24*time.Hour)
}

func TestMintAndValidateAccess(t *testing.T) {
	svc := newTestService()

	tok, err := svc.MintAccess("user-123")
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	claims, err := svc.Validate(tok, TypeAccess)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("expected subject user-123, got %s", claims.Subject)
	}
	if claims.TokenType != TypeAccess {
		t.Errorf("expected type access, got %s", claims.TokenType)
	}
	if claims.SessionID != "" {
		t.Errorf("expected empty session id on access token, got %s", claims.SessionID)
	}
}

func TestMintAndValidateRefresh(t *testing.T) {
	svc := newTestService()

	tok, err := svc.MintRefresh("user-123", "session-456")
	if err != nil {
		t.Fatalf("MintRefresh failed: %v", err)
	}

	claims, err := svc.Validate(tok, TypeRefresh)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("expected subject user-123, got %s", claims.Subject)
	}
	if claims.SessionID != "session-456" {
		t.Errorf("expected session id session-456, got %s", claims.SessionID)
	}
}

func TestValidate_CrossTypeFails(t *testing.T) {
	svc := newTestService()

	access, err := svc.MintAccess("user-123")
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}
	refresh, err := svc.MintRefresh("user-123", "session-456")
	if err != nil {
		t.Fatalf("MintRefresh failed: %v", err)
	}

	// Secrets differ, so a token of one class fails signature verification
	// against the other class before the type claim is even consulted.
	if _, err := svc.Validate(access, TypeRefresh); err == nil {
		t.Error("expected access token to fail refresh validation")
	}
	if _, err := svc.Validate(refresh, TypeAccess); err == nil {
		t.Error("expected refresh token to fail access validation")
	}
}

func TestValidate_WrongTypeClaimSameSecret(t *testing.T) {
	// With identical secrets the signature verifies and the type claim is the
	// only guard left. It must still reject.
	svc := NewService("shared-secret-shared-secret-12345", "shared-secret-shared-secret-12345", time.Hour, time.Hour)

	access, err := svc.MintAccess("user-123")
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	_, err = svc.Validate(access, TypeRefresh)
	if !errors.Is(err, ErrWrongType) {
		t.Errorf("expected ErrWrongType, got %v", err)
	}
}

func TestValidate_Expired(t *testing.T) {
	svc := newTestService()

	base := time.Now()
	svc.now = func() time.Time { return base }

	tok, err := svc.MintAccess("user-123")
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	// One second before expiry the token is still good.
	svc.now = func() time.Time { return base.Add(30*time.Minute - time.Second) }
	if _, err := svc.Validate(tok, TypeAccess); err != nil {
		t.Errorf("expected token valid just before expiry, got %v", err)
	}

	// Past expiry it is not.
	svc.now = func() time.Time { return base.Add(30*time.Minute + time.Second) }
	_, err = svc.Validate(tok, TypeAccess)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestValidate_TamperedSignature(t *testing.T) {
	svc := newTestService()

	tok, err := svc.MintAccess("user-123")
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	// Flip the last character of the signature segment.
	last := tok[len(tok)-1]
	replacement := byte('A')
	if last == 'A' {
		replacement = 'B'
	}
	tampered := tok[:len(tok)-1] + string(replacement)

	_, err = svc.Validate(tampered, TypeAccess)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestValidate_Malformed(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"two segments", "aaaa.bbbb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token, TypeAccess)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	minter := newTestService()
	verifier := NewService("a-completely-different-secret-xyz", "another-different-secret-xyz-abc", 30*time.Minute, 7*24*time.Hour)

	tok, err := minter.MintAccess("user-123")
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	_, err = verifier.Validate(tok, TypeAccess)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestValidate_RefreshWithoutSessionID(t *testing.T) {
	svc := newTestService()

	// Mint a refresh token with no session binding through the internal path.
	tok, err := svc.mint("user-123", "", TypeRefresh, svc.refreshSecret, svc.refreshTTL)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	_, err = svc.Validate(tok, TypeRefresh)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}
