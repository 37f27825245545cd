package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// SessionID identifies one login; it is stable across refresh rotations.
type SessionID [16]byte

const refreshSecretSize = 32

var errInvalidRefreshToken = errors.New("invalid refresh token")

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewRefreshToken returns a fresh opaque refresh token and the hash that is
// the only form of it ever persisted.
func NewRefreshToken() (string, [32]byte, error) {
	var secret [refreshSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", [32]byte{}, err
	}
	return base64.RawURLEncoding.EncodeToString(secret[:]), sha256.Sum256(secret[:]), nil
}

// DecodeRefreshToken parses a token produced by [NewRefreshToken].
func DecodeRefreshToken(token string) ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte

	if base64.RawURLEncoding.DecodedLen(len(token)) != refreshSecretSize {
		return secret, errInvalidRefreshToken
	}
	raw, err := base64.RawURLEncoding.Strict().DecodeString(token)
	if err != nil {
		return secret, errInvalidRefreshToken
	}
	if len(raw) != refreshSecretSize {
		return secret, errInvalidRefreshToken
	}

	copy(secret[:], raw)
	return secret, nil
}

// HashRefreshToken decodes token and returns its lookup hash.
func HashRefreshToken(token string) ([32]byte, error) {
	secret, err := DecodeRefreshToken(token)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(secret[:]), nil
}

// HashCode returns the stored form of a verification code.
func HashCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}

// NewOTP returns a uniformly random numeric code of the given length.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// IsNumeric reports whether s is non-empty and made only of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
