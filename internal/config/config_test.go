package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authcore"
)

// clearConfigEnv unsets every AUTHD_ variable so tests start clean.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] != '=' {
				continue
			}
			key := kv[:i]
			if len(key) > len(Prefix) && key[:len(Prefix)] == Prefix {
				t.Setenv(key, "")
				os.Unsetenv(key)
			}
			break
		}
	}
}

// writeKeyPair writes a PEM Ed25519 key pair and points the env at it.
func writeKeyPair(t *testing.T) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "jwt.key")
	pubPath := filepath.Join(dir, "jwt.pub")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}), 0o600))
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o600))

	t.Setenv("AUTHD_JWT_PRIVATE_KEY_FILE", privPath)
	t.Setenv("AUTHD_JWT_PUBLIC_KEY_FILE", pubPath)
}

func TestParse_Defaults(t *testing.T) {
	clearConfigEnv(t)
	writeKeyPair(t)

	cfg, err := parse()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "data/authd.db", cfg.BoltPath)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.True(t, cfg.SecureCookies)
	assert.False(t, cfg.IsProduction())
	assert.Nil(t, cfg.LoginLimit.Limit)
	assert.False(t, cfg.Google.Enabled())
}

func TestParse_MissingKeyOutsideDev(t *testing.T) {
	clearConfigEnv(t)

	_, err := parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTHD_JWT_PRIVATE_KEY_FILE")
}

func TestParse_DevGeneratesKey(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("AUTHD_DEV", "true")

	cfg, err := parse()
	require.NoError(t, err)

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Len(t, ec.JWT.PrivateKey, ed25519.PrivateKeySize)
	assert.Len(t, ec.JWT.PublicKey, ed25519.PublicKeySize)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "unknown signing method",
			env:  map[string]string{"AUTHD_JWT_SIGNING_METHOD": "rs256"},
			want: "AUTHD_JWT_SIGNING_METHOD",
		},
		{
			name: "short hs256 secret",
			env:  map[string]string{"AUTHD_JWT_SIGNING_METHOD": "hs256", "AUTHD_JWT_SECRET": "short"},
			want: "AUTHD_JWT_SECRET",
		},
		{
			name: "unknown reuse policy",
			env:  map[string]string{"AUTHD_DEV": "true", "AUTHD_SESSION_REUSE_POLICY": "ignore"},
			want: "AUTHD_SESSION_REUSE_POLICY",
		},
		{
			name: "smtp without from",
			env:  map[string]string{"AUTHD_DEV": "true", "AUTHD_SMTP_HOST": "smtp.example.com"},
			want: "AUTHD_SMTP_FROM",
		},
		{
			name: "oauth client without secret",
			env:  map[string]string{"AUTHD_DEV": "true", "AUTHD_GITHUB_CLIENT_ID": "abc"},
			want: "AUTHD_GITHUB_CLIENT_SECRET",
		},
		{
			name: "bad duration",
			env:  map[string]string{"AUTHD_DEV": "true", "AUTHD_SESSION_REFRESH_TTL": "forever"},
			want: "parsing config",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestEngineConfig_Overrides(t *testing.T) {
	clearConfigEnv(t)
	writeKeyPair(t)
	t.Setenv("AUTHD_JWT_AUDIENCE", "api")
	t.Setenv("AUTHD_JWT_ACCESS_TTL", "10m")
	t.Setenv("AUTHD_SESSION_REFRESH_TTL", "24h")
	t.Setenv("AUTHD_SESSION_ABSOLUTE_LIFETIME", "72h")
	t.Setenv("AUTHD_SESSION_REUSE_POLICY", "reject_only")
	t.Setenv("AUTHD_SESSION_REUSE_GRACE", "5s")
	t.Setenv("AUTHD_CACHE_SESSION_TTL", "2m")
	t.Setenv("AUTHD_VERIFY_MAX_ATTEMPTS", "3")
	t.Setenv("AUTHD_RATE_LOGIN_LIMIT", "4")
	t.Setenv("AUTHD_RATE_REGISTER_LIMIT", "0")
	t.Setenv("AUTHD_RATE_OTP_REQUEST_WINDOW", "1h")
	t.Setenv("AUTHD_METRICS_LATENCY", "true")

	cfg, err := parse()
	require.NoError(t, err)

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)

	defaults := authcore.DefaultConfig()

	assert.Equal(t, "api", ec.JWT.Audience)
	assert.Equal(t, 10*time.Minute, ec.JWT.AccessTTL)
	assert.NotEmpty(t, ec.JWT.PrivateKey)
	assert.NotEmpty(t, ec.JWT.PublicKey)
	assert.Equal(t, 24*time.Hour, ec.Session.RefreshTTL)
	assert.Equal(t, 72*time.Hour, ec.Session.AbsoluteLifetime)
	assert.Equal(t, authcore.ReuseRejectOnly, ec.Session.ReusePolicy)
	assert.Equal(t, 5*time.Second, ec.Session.ReuseGrace)
	assert.Equal(t, 2*time.Minute, ec.Cache.SessionTTL)
	assert.Equal(t, 3, ec.Verification.MaxAttempts)
	assert.True(t, ec.Metrics.EnableLatencyHistograms)

	assert.Equal(t, 4, ec.RateLimit.Login.Limit)
	assert.Equal(t, defaults.RateLimit.Login.Window, ec.RateLimit.Login.Window)
	assert.Equal(t, 0, ec.RateLimit.Register.Limit)
	assert.Equal(t, defaults.RateLimit.OTPRequest.Limit, ec.RateLimit.OTPRequest.Limit)
	assert.Equal(t, time.Hour, ec.RateLimit.OTPRequest.Window)
	assert.Equal(t, defaults.RateLimit.Refresh, ec.RateLimit.Refresh)
}

func TestEngineConfig_HS256(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("AUTHD_JWT_SIGNING_METHOD", "hs256")
	t.Setenv("AUTHD_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := parse()
	require.NoError(t, err)

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, "hs256", ec.JWT.SigningMethod)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), ec.JWT.PrivateKey)
}

func TestEngineConfig_InvalidCombination(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("AUTHD_DEV", "true")
	t.Setenv("AUTHD_SESSION_REFRESH_TTL", "1m")

	cfg, err := parse()
	require.NoError(t, err)

	_, err = cfg.EngineConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine config")
}

func TestEngineConfig_MissingKeyFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("AUTHD_JWT_PRIVATE_KEY_FILE", filepath.Join(t.TempDir(), "missing.key"))
	t.Setenv("AUTHD_JWT_PUBLIC_KEY_FILE", filepath.Join(t.TempDir(), "missing.pub"))

	cfg, err := parse()
	require.NoError(t, err)

	_, err = cfg.EngineConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading private key")
}
