package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	maxMemoryKB    uint32 = 1024 * 1024
	minTimeCost    uint32 = 1
	maxTimeCost    uint32 = 64
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"

	// DefaultMinPasswordBytes applies when Config.MinPasswordBytes is zero.
	DefaultMinPasswordBytes = 10
	// DefaultMaxPasswordBytes applies when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

var (
	ErrTooShort      = errors.New("password: too short")
	ErrTooLong       = errors.New("password: too long")
	ErrMalformedHash = errors.New("password: malformed hash")
)

// Config holds Argon2id cost parameters and plaintext bounds.
type Config struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinPasswordBytes int
	MaxPasswordBytes int
}

// DefaultConfig returns interactive-login parameters.
func DefaultConfig() Config {
	return Config{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      2,
		SaltLength:       16,
		KeyLength:        32,
		MinPasswordBytes: DefaultMinPasswordBytes,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	config Config
	// dummy is verified against when no account matched, so unknown
	// identifiers cost the same as wrong passwords.
	dummy string
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.MinPasswordBytes == 0 {
		cfg.MinPasswordBytes = DefaultMinPasswordBytes
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	h := &Hasher{config: cfg}

	seed := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, err
	}
	dummy, err := h.hash(base64.RawStdEncoding.EncodeToString(seed))
	if err != nil {
		return nil, err
	}
	h.dummy = dummy

	return h, nil
}

// CheckPolicy reports whether password satisfies the byte-length bounds.
// Length is measured on raw bytes; no Unicode normalization is applied.
func (h *Hasher) CheckPolicy(password string) error {
	if len(password) < h.config.MinPasswordBytes {
		return fmt.Errorf("%w: minimum is %d bytes", ErrTooShort, h.config.MinPasswordBytes)
	}
	if len(password) > h.config.MaxPasswordBytes {
		return fmt.Errorf("%w: maximum is %d bytes", ErrTooLong, h.config.MaxPasswordBytes)
	}
	return nil
}

// Hash returns the PHC encoding of password under the current parameters.
func (h *Hasher) Hash(password string) (string, error) {
	if err := h.CheckPolicy(password); err != nil {
		return "", err
	}
	return h.hash(password)
}

func (h *Hasher) hash(password string) (string, error) {
	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash. Oversized input is
// rejected before any key derivation.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	if len(password) > h.config.MaxPasswordBytes {
		return false, ErrTooLong
	}

	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.hash)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// VerifyDummy spends the same work as [Hasher.Verify] and always reports a
// mismatch. Use it when no account matched the presented identifier.
func (h *Hasher) VerifyDummy(password string) {
	if len(password) > h.config.MaxPasswordBytes {
		return
	}
	_, _ = h.Verify(password, h.dummy)
}

// NeedsUpgrade reports whether encodedHash was produced with parameters
// weaker than the current ones.
func (h *Hasher) NeedsUpgrade(encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	return h.config.Memory > parsed.memory ||
		h.config.Time > parsed.time ||
		h.config.Parallelism > parsed.parallelism ||
		h.config.KeyLength != uint32(len(parsed.hash)), nil
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: invalid PHC format", ErrMalformedHash)
	}
	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm", ErrMalformedHash)
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, fmt.Errorf("%w: invalid argon2 version", ErrMalformedHash)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version", ErrMalformedHash)
	}

	p := &parsedPHC{}
	if err := parseParams(parts[3], p); err != nil {
		return nil, err
	}

	p.salt, err = decodeSegment(parts[4])
	if err != nil || len(p.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: invalid salt", ErrMalformedHash)
	}
	p.hash, err = decodeSegment(parts[5])
	if err != nil || len(p.hash) < int(minKeyLength) {
		return nil, fmt.Errorf("%w: invalid hash", ErrMalformedHash)
	}

	return p, nil
}

// decodeSegment accepts both unpadded (PHC) and padded base64.
func decodeSegment(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func parseParams(part string, p *parsedPHC) error {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return fmt.Errorf("%w: invalid parameter format", ErrMalformedHash)
	}

	var memorySet, timeSet, parallelismSet bool
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: invalid parameter entry", ErrMalformedHash)
		}

		switch key {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minMemoryKB) || v > uint64(maxMemoryKB) {
				return fmt.Errorf("%w: invalid memory parameter", ErrMalformedHash)
			}
			p.memory = uint32(v)
			memorySet = true
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minTimeCost) || v > uint64(maxTimeCost) {
				return fmt.Errorf("%w: invalid time parameter", ErrMalformedHash)
			}
			p.time = uint32(v)
			timeSet = true
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return fmt.Errorf("%w: invalid parallelism parameter", ErrMalformedHash)
			}
			p.parallelism = uint8(v)
			parallelismSet = true
		default:
			return fmt.Errorf("%w: unsupported parameter", ErrMalformedHash)
		}
	}

	if !memorySet || !timeSet || !parallelismSet {
		return fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}
	return nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB || cfg.Memory > maxMemoryKB {
		return errors.New("password memory must be between 8192 KB and 1 GiB")
	}
	if cfg.Time < minTimeCost || cfg.Time > maxTimeCost {
		return errors.New("password time must be between 1 and 64")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}
	if cfg.MinPasswordBytes < 1 || cfg.MaxPasswordBytes < cfg.MinPasswordBytes {
		return errors.New("password length bounds are inconsistent")
	}

	return nil
}
