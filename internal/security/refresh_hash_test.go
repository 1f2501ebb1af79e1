package security

import (
	"testing"
)

func TestHashRefreshToken_Deterministic(t *testing.T) {
	token := "refresh-token-123"
	if HashRefreshToken(token) != HashRefreshToken(token) {
		t.Error("HashRefreshToken is not deterministic")
	}
	if len(HashRefreshToken(token)) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(HashRefreshToken(token)))
	}
}

func TestHashRefreshToken_DistinctInputs(t *testing.T) {
	if HashRefreshToken("token-1") == HashRefreshToken("token-2") {
		t.Error("different tokens produced the same hash")
	}
}

func TestRefreshTokenHashEqual(t *testing.T) {
	token := "refresh-token-456"
	stored := HashRefreshToken(token)

	if !RefreshTokenHashEqual(token, stored) {
		t.Error("correct token should match its stored hash")
	}
	if RefreshTokenHashEqual("wrong-token", stored) {
		t.Error("wrong token must not match")
	}
	if RefreshTokenHashEqual(token, "a"+stored) {
		t.Error("hash with different length must not match")
	}
	if RefreshTokenHashEqual(token, "a"+stored[1:]) {
		t.Error("hash with different content must not match")
	}
	if RefreshTokenHashEqual("", "") {
		t.Error("empty inputs must not match")
	}
}
