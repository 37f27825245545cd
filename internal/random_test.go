package internal

import (
	"testing"
)

func TestNewRefreshTokenHashMatches(t *testing.T) {
	token, hash, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("new refresh token failed: %v", err)
	}

	got, err := HashRefreshToken(token)
	if err != nil {
		t.Fatalf("hash refresh token failed: %v", err)
	}
	if got != hash {
		t.Fatal("hash of issued token does not match returned hash")
	}

	other, _, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("new refresh token failed: %v", err)
	}
	if other == token {
		t.Fatal("two refresh tokens collided")
	}
}

func TestDecodeRefreshTokenRejectsWrongShape(t *testing.T) {
	for _, in := range []string{"", "short", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!"} {
		if _, err := DecodeRefreshToken(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestNewOTP(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewOTP(6)
		if err != nil {
			t.Fatalf("new otp failed: %v", err)
		}
		if len(code) != 6 || !IsNumeric(code) {
			t.Fatalf("malformed code %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("codes are not varying")
	}

	if _, err := NewOTP(3); err == nil {
		t.Fatal("expected error for too few digits")
	}
	if _, err := NewOTP(11); err == nil {
		t.Fatal("expected error for too many digits")
	}
}

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("new session id failed: %v", err)
	}
	parsed, err := ParseSessionID(sid.String())
	if err != nil || parsed != sid {
		t.Fatalf("parse = %v, %v", parsed, err)
	}
	if _, err := ParseSessionID("nope"); err == nil {
		t.Fatal("expected error for malformed session id")
	}
}

func TestIsNumeric(t *testing.T) {
	cases := map[string]bool{"": false, "123": true, "12a": false, "٣": false}
	for in, want := range cases {
		if got := IsNumeric(in); got != want {
			t.Fatalf("IsNumeric(%q) = %v", in, got)
		}
	}
}
