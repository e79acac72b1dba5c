package credential

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	secret := "my-secret-password-123"

	digest, err := Hash(secret)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if digest == "" {
		t.Fatal("expected non-empty digest")
	}

	if !Verify(secret, digest) {
		t.Error("expected correct secret to verify")
	}
	if Verify("wrong-password", digest) {
		t.Error("expected wrong secret to fail verification")
	}
}

func TestVerify_SingleBitMutation(t *testing.T) {
	secret := "correct horse battery staple"
	digest, err := Hash(secret)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	// Flip the low bit of the first byte.
	mutated := string(secret[0]^1) + secret[1:]
	if Verify(mutated, digest) {
		t.Error("expected mutated secret to fail verification")
	}
}

func TestVerify_MalformedDigest(t *testing.T) {
	tests := []struct {
		name   string
		digest string
	}{
		{"empty string", ""},
		{"random text", "not-a-digest"},
		{"wrong prefix", "$1$abcdef$ghijkl"},
		{"truncated bcrypt", "$2a$12$tooShort"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Verify("password", tt.digest) {
				t.Error("expected malformed digest to fail verification")
			}
		})
	}
}

func TestHash_UniqueSalts(t *testing.T) {
	d1, err := Hash("same-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	d2, err := Hash("same-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if d1 == d2 {
		t.Error("expected different salts to produce different digests")
	}
}

func TestHash_LongSecretTruncation(t *testing.T) {
	// Secrets sharing the first 72 bytes hash and verify identically.
	base := strings.Repeat("a", 72)
	long := base + "trailing-bytes-beyond-the-limit"

	digest, err := Hash(long)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if !Verify(base, digest) {
		t.Error("expected 72-byte prefix to verify against truncated hash")
	}
	if !Verify(long+"even-more", digest) {
		t.Error("expected any secret sharing the 72-byte prefix to verify")
	}

	// A difference inside the first 72 bytes must still fail.
	if Verify(strings.Repeat("b", 72), digest) {
		t.Error("expected different prefix to fail verification")
	}
}

func TestNewToken(t *testing.T) {
	tok, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}
	// 32 bytes base64url without padding = 43 characters.
	if len(tok) != 43 {
		t.Errorf("expected 43-char token, got %d: %s", len(tok), tok)
	}
	if strings.ContainsAny(tok, "+/=") {
		t.Errorf("expected URL-safe token, got %s", tok)
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken failed: %v", err)
		}
		if seen[tok] {
			t.Fatalf("token collision after %d iterations", i)
		}
		seen[tok] = true
	}
}

func TestDigest(t *testing.T) {
	d1 := Digest("token-a")
	d2 := Digest("token-a")
	if d1 != d2 {
		t.Error("expected Digest to be deterministic")
	}
	if d1 == Digest("token-b") {
		t.Error("expected different tokens to produce different digests")
	}
	// SHA-256 = 32 bytes = 64 hex characters.
	if len(d1) != 64 {
		t.Errorf("expected 64-char hex digest, got %d chars", len(d1))
	}
}
