package password

import (
	"errors"
	"strings"
	"testing"
)

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T, cfg Config) *Hasher {
	t.Helper()
	h, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t, fastConfig())

	hash, err := h.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := h.Verify("P@ssw0rd-Ascii", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed: ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong-password", hash)
	if err != nil || ok {
		t.Fatalf("expected wrong password to fail: ok=%v err=%v", ok, err)
	}
}

func TestHashesAreSalted(t *testing.T) {
	h := newTestHasher(t, fastConfig())

	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyAcceptsPaddedLegacyEncoding(t *testing.T) {
	h := newTestHasher(t, fastConfig())

	hash, err := h.Hash("legacy-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	parts := strings.Split(hash, "$")
	// 16-byte salt and 32-byte key both need padding in std base64.
	parts[4] += "=="
	parts[5] += "="
	padded := strings.Join(parts, "$")

	ok, err := h.Verify("legacy-password", padded)
	if err != nil || !ok {
		t.Fatalf("padded encoding should verify: ok=%v err=%v", ok, err)
	}
}

func TestNeedsUpgrade(t *testing.T) {
	old := newTestHasher(t, fastConfig())
	hash, err := old.Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := fastConfig()
	stronger.Time = 2
	upgraded := newTestHasher(t, stronger)

	needs, err := upgraded.NeedsUpgrade(hash)
	if err != nil || !needs {
		t.Fatalf("expected upgrade for weaker parameters: needs=%v err=%v", needs, err)
	}

	needs, err = old.NeedsUpgrade(hash)
	if err != nil || needs {
		t.Fatalf("expected no upgrade for current parameters: needs=%v err=%v", needs, err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t, fastConfig())

	for _, in := range []string{
		"not-a-phc-hash",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=99999999,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
	} {
		if _, err := h.Verify("password", in); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("expected ErrMalformedHash for %q, got %v", in, err)
		}
	}
}

func TestLengthPolicy(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 64
	h := newTestHasher(t, cfg)

	if _, err := h.Hash("short"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 65)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}

	exact := strings.Repeat("b", 64)
	hash, err := h.Hash(exact)
	if err != nil {
		t.Fatalf("exactly-max password rejected: %v", err)
	}
	if _, err := h.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected Verify to reject oversized input, got %v", err)
	}
}

func TestDefaultBoundsApplied(t *testing.T) {
	h := newTestHasher(t, fastConfig())

	if err := h.CheckPolicy(strings.Repeat("d", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected default max to apply, got %v", err)
	}
	if err := h.CheckPolicy(strings.Repeat("e", DefaultMinPasswordBytes-1)); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected default min to apply, got %v", err)
	}
}

func TestVerifyDummyDoesNotPanic(t *testing.T) {
	h := newTestHasher(t, fastConfig())
	h.VerifyDummy("anything-at-all")
	h.VerifyDummy(strings.Repeat("x", DefaultMaxPasswordBytes+10))
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	cfg := fastConfig()
	cfg.Memory = 1024
	if _, err := NewHasher(cfg); err == nil {
		t.Fatal("expected weak memory cost to be rejected")
	}
}
