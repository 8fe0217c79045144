package internal

import (
	"testing"
)

// FuzzParseRefreshToken feeds arbitrary cookie values to the parser.
// Invalid input must fail cleanly and valid input must round-trip.
func FuzzParseRefreshToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

	if sid, err := NewSessionID(); err == nil {
		if tok, err := NewRefreshToken(sid); err == nil {
			f.Add(tok.Encode())
		}
	}

	f.Fuzz(func(t *testing.T, s string) {
		tok, err := ParseRefreshToken(s)
		if err != nil {
			return
		}
		again, err := ParseRefreshToken(tok.Encode())
		if err != nil {
			t.Fatalf("re-parse of encoded token failed: %v", err)
		}
		if again != tok {
			t.Fatalf("round trip mismatch")
		}
	})
}
