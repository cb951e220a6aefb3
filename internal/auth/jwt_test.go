package auth

import (
	"testing"
	"time"
)

const (
	testAccessSecret  = "test-access-secret-0123"
	testRefreshSecret = "test-refresh-secret-0123"
)

func newTestManager() *Manager {
	return NewManager(testAccessSecret, testRefreshSecret, 15*time.Minute, 7*24*time.Hour)
}

func TestIssuePairRoundTrip(t *testing.T) {
	m := newTestManager()

	access, refresh, err := m.IssuePair("user-1", "a@example.com")

	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	accessClaims, err := m.VerifyAccessToken(access)

	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}

	if accessClaims.Subject != "user-1" || accessClaims.Email != "a@example.com" {
		t.Fatalf("unexpected access claims: %+v", accessClaims)
	}

	if accessClaims.TokenType != TokenTypeAccess {
		t.Fatalf("access tokenType = %q", accessClaims.TokenType)
	}

	refreshClaims, err := m.VerifyRefreshToken(refresh)

	if err != nil {
		t.Fatalf("VerifyRefreshToken: %v", err)
	}

	if refreshClaims.Subject != "user-1" || refreshClaims.TokenType != TokenTypeRefresh {
		t.Fatalf("unexpected refresh claims: %+v", refreshClaims)
	}
}

// A token of one kind must never verify as the other, even though both are
// well-formed JWTs.
func TestVerifyRejectsCrossTypeUse(t *testing.T) {
	m := newTestManager()

	access, refresh, err := m.IssuePair("user-1", "a@example.com")

	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := m.VerifyRefreshToken(access); err == nil {
		t.Fatal("access token accepted as refresh token")
	}

	if _, err := m.VerifyAccessToken(refresh); err == nil {
		t.Fatal("refresh token accepted as access token")
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	m := newTestManager()
	other := NewManager("another-access-secret-x", "another-refresh-secret-x", time.Minute, time.Hour)

	access, refresh, err := other.IssuePair("user-1", "a@example.com")

	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := m.VerifyAccessToken(access); err == nil {
		t.Fatal("token signed with a foreign secret was accepted")
	}

	if _, err := m.VerifyRefreshToken(refresh); err == nil {
		t.Fatal("refresh token signed with a foreign secret was accepted")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewManager(testAccessSecret, testRefreshSecret, -time.Minute, -time.Minute)

	access, refresh, err := m.IssuePair("user-1", "a@example.com")

	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := m.VerifyAccessToken(access); err == nil {
		t.Fatal("expired access token was accepted")
	}

	if _, err := m.VerifyRefreshToken(refresh); err == nil {
		t.Fatal("expired refresh token was accepted")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	m := newTestManager()

	for _, raw := range []string{"", "not-a-jwt", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		if _, err := m.VerifyAccessToken(raw); err == nil {
			t.Fatalf("malformed token %q was accepted", raw)
		}
	}
}

func TestHashRefreshToken(t *testing.T) {
	m := newTestManager()

	_, refresh, err := m.IssuePair("user-1", "a@example.com")

	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	h1 := m.HashRefreshToken(refresh)
	h2 := m.HashRefreshToken(refresh)

	if h1 != h2 {
		t.Fatal("hash is not deterministic")
	}

	if h1 == m.HashRefreshToken(refresh+"x") {
		t.Fatal("distinct tokens hash identically")
	}

	if len(h1) != 64 { // hex sha256
		t.Fatalf("unexpected hash length %d", len(h1))
	}
}
