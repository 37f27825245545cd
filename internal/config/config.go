package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/MrEthical07/authcore"
)

// Prefix is prepended to every variable name.
const Prefix = "AUTHD_"

// Config holds all environment-based configuration for authd.
type Config struct {
	// Environment controls log format.
	Environment string `env:"ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"`

	// Dev swaps Redis for an in-process miniredis, logs mail instead of
	// sending it and generates a throwaway signing key when none is set.
	Dev bool `env:"DEV" envDefault:"false"`

	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	TrustForwarded  bool          `env:"TRUST_FORWARDED" envDefault:"false"`
	SecureCookies   bool          `env:"SECURE_COOKIES" envDefault:"true"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`

	// DatabaseURL selects PostgreSQL. When empty the bbolt file at BoltPath
	// is used.
	DatabaseURL string `env:"DATABASE_URL"`
	BoltPath    string `env:"BOLT_PATH" envDefault:"data/authd.db"`

	Redis        Redis        `envPrefix:"REDIS_"`
	JWT          JWT          `envPrefix:"JWT_"`
	Session      Session      `envPrefix:"SESSION_"`
	Cache        Cache        `envPrefix:"CACHE_"`
	Verification Verification `envPrefix:"VERIFY_"`
	SMTP         SMTP         `envPrefix:"SMTP_"`
	Google       OAuthClient  `envPrefix:"GOOGLE_"`
	GitHub       OAuthClient  `envPrefix:"GITHUB_"`
	Metrics      Metrics      `envPrefix:"METRICS_"`

	LoginLimit      RateLimit `envPrefix:"RATE_LOGIN_"`
	RegisterLimit   RateLimit `envPrefix:"RATE_REGISTER_"`
	RefreshLimit    RateLimit `envPrefix:"RATE_REFRESH_"`
	OTPLimit        RateLimit `envPrefix:"RATE_OTP_"`
	OTPRequestLimit RateLimit `envPrefix:"RATE_OTP_REQUEST_"`
}

// Redis contains connection parameters for the cache and limiter backend.
type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// JWT contains access-token signing parameters. Ed25519 keys are read from
// PEM files; hs256 takes a raw secret.
type JWT struct {
	SigningMethod  string        `env:"SIGNING_METHOD" envDefault:"ed25519"`
	PrivateKeyFile string        `env:"PRIVATE_KEY_FILE"`
	PublicKeyFile  string        `env:"PUBLIC_KEY_FILE"`
	Secret         string        `env:"SECRET"`
	Issuer         string        `env:"ISSUER" envDefault:"authcore"`
	Audience       string        `env:"AUDIENCE"`
	KeyID          string        `env:"KEY_ID"`
	AccessTTL      time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	Leeway         time.Duration `env:"LEEWAY" envDefault:"0s"`
}

// Session contains refresh-credential lifetimes.
type Session struct {
	RefreshTTL       time.Duration `env:"REFRESH_TTL" envDefault:"720h"`
	AbsoluteLifetime time.Duration `env:"ABSOLUTE_LIFETIME" envDefault:"2160h"`
	ReusePolicy      string        `env:"REUSE_POLICY" envDefault:"revoke_all"`
	ReuseGrace       time.Duration `env:"REUSE_GRACE" envDefault:"0s"`
	RetainInactive   time.Duration `env:"RETAIN_INACTIVE" envDefault:"168h"`
}

// Cache contains session cache parameters.
type Cache struct {
	Prefix     string        `env:"PREFIX" envDefault:"authcore"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"5m"`
	OpTimeout  time.Duration `env:"OP_TIMEOUT" envDefault:"250ms"`
}

// Verification contains email verification code parameters.
type Verification struct {
	CodeTTL        time.Duration `env:"CODE_TTL" envDefault:"15m"`
	MaxAttempts    int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	SendOnRegister bool          `env:"SEND_ON_REGISTER" envDefault:"true"`
}

// SMTP contains outbound mail parameters. An empty Host logs mail instead.
type SMTP struct {
	Host     string        `env:"HOST"`
	Port     int           `env:"PORT" envDefault:"587"`
	Username string        `env:"USERNAME"`
	Password string        `env:"PASSWORD"`
	From     string        `env:"FROM"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// OAuthClient holds one provider registration. A provider is enabled when
// ClientID is set.
type OAuthClient struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// Enabled reports whether the provider is configured.
func (o OAuthClient) Enabled() bool {
	return o.ClientID != ""
}

// Metrics toggles counters and the latency histogram.
type Metrics struct {
	Enabled bool `env:"ENABLED" envDefault:"true"`
	Latency bool `env:"LATENCY" envDefault:"false"`
}

// RateLimit overrides one limiter policy. Unset fields keep the library
// default; a Limit of 0 disables the scope.
type RateLimit struct {
	Limit  *int           `env:"LIMIT"`
	Window *time.Duration `env:"WINDOW"`
}

// warnInsecureEnvFile warns when a .env file holding secrets is readable by
// group or others.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return errors.New("AUTHD_LISTEN_ADDR is required")
	}
	if c.DatabaseURL == "" && c.BoltPath == "" {
		return errors.New("one of AUTHD_DATABASE_URL or AUTHD_BOLT_PATH is required")
	}
	if c.SweepInterval < 0 {
		return errors.New("AUTHD_SWEEP_INTERVAL must be >= 0")
	}

	switch c.JWT.SigningMethod {
	case "ed25519":
		if c.JWT.PrivateKeyFile == "" && !c.Dev {
			return errors.New("AUTHD_JWT_PRIVATE_KEY_FILE is required for ed25519")
		}
		if c.JWT.PrivateKeyFile != "" && c.JWT.PublicKeyFile == "" {
			return errors.New("AUTHD_JWT_PUBLIC_KEY_FILE is required with AUTHD_JWT_PRIVATE_KEY_FILE")
		}
	case "hs256":
		if len(c.JWT.Secret) < 32 {
			return errors.New("AUTHD_JWT_SECRET must be at least 32 bytes for hs256")
		}
	default:
		return fmt.Errorf("unsupported AUTHD_JWT_SIGNING_METHOD %q", c.JWT.SigningMethod)
	}

	if _, err := parseReusePolicy(c.Session.ReusePolicy); err != nil {
		return err
	}

	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return errors.New("AUTHD_SMTP_FROM is required when AUTHD_SMTP_HOST is set")
	}

	for name, oc := range map[string]OAuthClient{"GOOGLE": c.Google, "GITHUB": c.GitHub} {
		if oc.Enabled() && (oc.ClientSecret == "" || oc.RedirectURL == "") {
			return fmt.Errorf("AUTHD_%s_CLIENT_SECRET and AUTHD_%s_REDIRECT_URL are required with a client id", name, name)
		}
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// EngineConfig converts the environment into an engine configuration. In
// dev mode without key files a fresh Ed25519 pair is generated, so tokens
// do not survive a restart.
func (c *Config) EngineConfig() (authcore.Config, error) {
	out := authcore.DefaultConfig()

	out.JWT.SigningMethod = c.JWT.SigningMethod
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.Audience = c.JWT.Audience
	out.JWT.KeyID = c.JWT.KeyID
	out.JWT.AccessTTL = c.JWT.AccessTTL
	out.JWT.Leeway = c.JWT.Leeway
	if err := c.loadKeys(&out.JWT); err != nil {
		return authcore.Config{}, err
	}

	policy, err := parseReusePolicy(c.Session.ReusePolicy)
	if err != nil {
		return authcore.Config{}, err
	}
	out.Session = authcore.SessionConfig{
		RefreshTTL:       c.Session.RefreshTTL,
		AbsoluteLifetime: c.Session.AbsoluteLifetime,
		ReusePolicy:      policy,
		ReuseGrace:       c.Session.ReuseGrace,
		RetainInactive:   c.Session.RetainInactive,
	}

	out.Cache.Prefix = c.Cache.Prefix
	out.Cache.SessionTTL = c.Cache.SessionTTL
	out.Cache.OpTimeout = c.Cache.OpTimeout

	out.Verification.CodeTTL = c.Verification.CodeTTL
	out.Verification.MaxAttempts = c.Verification.MaxAttempts
	out.Verification.SendOnRegister = c.Verification.SendOnRegister

	c.LoginLimit.apply(&out.RateLimit.Login)
	c.RegisterLimit.apply(&out.RateLimit.Register)
	c.RefreshLimit.apply(&out.RateLimit.Refresh)
	c.OTPLimit.apply(&out.RateLimit.OTP)
	c.OTPRequestLimit.apply(&out.RateLimit.OTPRequest)

	out.Metrics.Enabled = c.Metrics.Enabled
	out.Metrics.EnableLatencyHistograms = c.Metrics.Latency

	if err := out.Validate(); err != nil {
		return authcore.Config{}, fmt.Errorf("engine config: %w", err)
	}
	return out, nil
}

func (c *Config) loadKeys(jc *authcore.JWTConfig) error {
	if c.JWT.SigningMethod == "hs256" {
		jc.PrivateKey = []byte(c.JWT.Secret)
		return nil
	}

	if c.JWT.PrivateKeyFile == "" {
		if !c.Dev {
			return errors.New("no ed25519 signing key configured")
		}
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return fmt.Errorf("generating dev signing key: %w", err)
		}
		jc.PrivateKey = priv
		jc.PublicKey = pub
		return nil
	}

	priv, err := os.ReadFile(c.JWT.PrivateKeyFile)
	if err != nil {
		return fmt.Errorf("reading private key: %w", err)
	}
	pub, err := os.ReadFile(c.JWT.PublicKeyFile)
	if err != nil {
		return fmt.Errorf("reading public key: %w", err)
	}
	jc.PrivateKey = priv
	jc.PublicKey = pub
	return nil
}

func (r RateLimit) apply(p *authcore.RateLimitPolicy) {
	if r.Limit != nil {
		p.Limit = *r.Limit
	}
	if r.Window != nil {
		p.Window = *r.Window
	}
}

func parseReusePolicy(s string) (authcore.ReusePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "revoke_all":
		return authcore.ReuseRevokeAll, nil
	case "reject_only":
		return authcore.ReuseRejectOnly, nil
	default:
		return 0, fmt.Errorf("unsupported AUTHD_SESSION_REUSE_POLICY %q", s)
	}
}
