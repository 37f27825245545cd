package authcore

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/mail"
	"github.com/MrEthical07/authcore/oauth"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/session"
)

// Builder assembles an [Engine]. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	cache  cache.Cache
	store  credential.Store

	mailer     mail.Sender
	dispatcher mail.DispatcherConfig
	providers  []oauth.Provider

	logger  *slog.Logger
	now     func() time.Time
	newCode func(digits int) (string, error)

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the durable account and credential store. Required.
func (b *Builder) WithStore(store credential.Store) *Builder {
	b.store = store
	return b
}

// WithRedis sets the client backing rate limits, verification codes and,
// unless WithCache overrides it, the session cache. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCache overrides the session cache backend.
func (b *Builder) WithCache(c cache.Cache) *Builder {
	b.cache = c
	return b
}

// WithMailer sets the sender for verification emails. Messages are queued
// on an async dispatcher owned by the engine. Without a mailer, codes are
// stored but never delivered.
func (b *Builder) WithMailer(sender mail.Sender) *Builder {
	b.mailer = sender
	return b
}

// WithMailQueue tunes the dispatcher created for WithMailer.
func (b *Builder) WithMailQueue(cfg mail.DispatcherConfig) *Builder {
	b.dispatcher = cfg
	return b
}

// WithProvider registers an identity provider under its Name.
func (b *Builder) WithProvider(p oauth.Provider) *Builder {
	b.providers = append(b.providers, p)
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for every expiry decision the engine makes.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithCodeSource overrides verification code generation.
func (b *Builder) WithCodeSource(fn func(digits int) (string, error)) *Builder {
	b.newCode = fn
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	newCode := b.newCode
	if newCode == nil {
		newCode = internal.NewOTP
	}

	// -------- SESSION CACHE --------
	backend := b.cache
	if backend == nil {
		backend = cache.NewRedis(b.redis, cfg.Cache.Prefix, cfg.Cache.OpTimeout)
	}

	engine := &Engine{
		config:       cfg,
		store:        b.store,
		cacheBackend: backend,
		sessions:     session.NewCache(backend, cfg.Cache.SessionTTL),
		providers:    make(map[string]oauth.Provider, len(b.providers)),
		metrics:      NewMetrics(cfg.Metrics),
		logger:       logger,
		now:          now,
		newCode:      newCode,
	}

	// -------- REDIS-BACKED STATE --------
	engine.limiter = rate.New(b.redis, rate.Config{
		Policies: map[rate.Scope]rate.Policy{
			rate.ScopeLogin:      rate.Policy(cfg.RateLimit.Login),
			rate.ScopeRegister:   rate.Policy(cfg.RateLimit.Register),
			rate.ScopeRefresh:    rate.Policy(cfg.RateLimit.Refresh),
			rate.ScopeOTP:        rate.Policy(cfg.RateLimit.OTP),
			rate.ScopeOTPRequest: rate.Policy(cfg.RateLimit.OTPRequest),
		},
		Prefix:    prefixed(cfg.Cache.Prefix, "rl"),
		OpTimeout: cfg.Cache.OpTimeout,
	})
	engine.codes = stores.NewVerificationStore(b.redis, prefixed(cfg.Cache.Prefix, "ver"), cfg.Cache.OpTimeout)

	// -------- PROVIDERS --------
	for _, p := range b.providers {
		if p == nil {
			return nil, errors.New("nil identity provider")
		}
		name := strings.ToLower(p.Name())
		if _, dup := engine.providers[name]; dup {
			return nil, errors.New("duplicate identity provider " + name)
		}
		engine.providers[name] = p
	}

	// -------- CRYPTO --------
	hasher, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MinPasswordBytes: cfg.Password.MinPasswordBytes,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	engine.jwt = jm

	// -------- MAIL --------
	if b.mailer != nil {
		engine.mailer = mail.NewDispatcher(b.dispatcher, b.mailer, logger)
	}

	b.built = true

	return engine, nil
}

func prefixed(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}
