package internal

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

// FuzzDecodeRefreshToken exercises refresh token decoding with arbitrary strings.
func FuzzDecodeRefreshToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

	if token, _, err := NewRefreshToken(); err == nil {
		f.Add(token)
	}

	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")

	f.Fuzz(func(t *testing.T, input string) {
		secret, err := DecodeRefreshToken(input)
		if err != nil {
			return
		}

		if got := base64.RawURLEncoding.EncodeToString(secret[:]); got != input {
			t.Fatalf("decoding is not canonical: %q re-encodes to %q", input, got)
		}

		hash, err := HashRefreshToken(input)
		if err != nil {
			t.Fatalf("hash failed after successful decode: %v", err)
		}
		if hash != sha256.Sum256(secret[:]) {
			t.Fatal("hash does not match decoded secret")
		}
	})
}
