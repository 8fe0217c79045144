package internal

import (
	"errors"
	"testing"
)

func TestRefreshTokenRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("session id: %v", err)
	}
	tok, err := NewRefreshToken(sid)
	if err != nil {
		t.Fatalf("refresh token: %v", err)
	}

	parsed, err := ParseRefreshToken(tok.Encode())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.SessionID != sid || parsed.Hash() != tok.Hash() {
		t.Fatal("round trip changed the token")
	}
	if parsed.SessionID.String() != sid.String() {
		t.Fatal("session id string mismatch")
	}

	other, _ := NewRefreshToken(sid)
	if other.Hash() == tok.Hash() {
		t.Fatal("expected a fresh secret per token")
	}
}

func TestParseRefreshTokenRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not base64!", "c2hvcnQ"} {
		if _, err := ParseRefreshToken(s); !errors.Is(err, ErrMalformedRefreshToken) {
			t.Fatalf("%q: expected ErrMalformedRefreshToken, got %v", s, err)
		}
	}
}
