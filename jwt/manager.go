package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the access-token signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

var (
	// ErrExpired is returned for a well-signed token past its exp claim.
	ErrExpired = errors.New("jwt: token expired")
	// ErrInvalid covers every other rejection: bad signature, algorithm,
	// issuer, audience, kid or missing claims.
	ErrInvalid = errors.New("jwt: token invalid")
)

// Config holds signing keys and validation rules.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	KeyID         string
	// VerifyKeys maps kid to verification key for key rotation.
	VerifyKeys map[string][]byte
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Manager signs and parses access tokens. It is safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// AccessClaims is the access-token payload.
type AccessClaims struct {
	UID string `json:"uid"`
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a key of at least 32 bytes")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// CreateAccess signs a token for (uid, sid) that expires after AccessTTL,
// capped at notAfter when notAfter is non-zero.
func (j *Manager) CreateAccess(uid, sid string, notAfter time.Time) (string, time.Time, error) {
	if uid == "" || sid == "" {
		return "", time.Time{}, errors.New("uid and sid are required")
	}

	now := j.now()
	exp := now.Add(j.config.AccessTTL)
	if !notAfter.IsZero() && notAfter.Before(exp) {
		exp = notAfter
	}

	claims := AccessClaims{
		UID: uid,
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	token := jwt.NewWithClaims(j.getMethod(), claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	signKey, err := j.getSignKey()
	if err != nil {
		return "", time.Time{}, err
	}

	signed, err := token.SignedString(signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// ParseAccess verifies tokenStr and returns its claims. Errors wrap
// [ErrExpired] or [ErrInvalid].
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.getMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}

		if len(j.config.VerifyKeys) > 0 {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			key, ok := j.config.VerifyKeys[kid]
			if !ok {
				return nil, errors.New("unknown kid")
			}
			return j.keyBytesToVerifyKey(key)
		}

		if j.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != j.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}

		return j.getVerifyKey()
	})
	if err != nil {
		// Expiry is only reported when the signature itself verified.
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.UID == "" || claims.SID == "" {
		return nil, fmt.Errorf("%w: missing uid or sid", ErrInvalid)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(j.now().Add(j.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalid)
	}

	return claims, nil
}

func (j *Manager) getMethod() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) getSignKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(j.config.PrivateKey)
	}
}

func (j *Manager) getVerifyKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPublicKey(j.config.PublicKey)
	}
}

func (j *Manager) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return key, nil
	default:
		return parseEdPublicKey(key)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
