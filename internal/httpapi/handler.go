package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
)

// Engine is the slice of *authcore.Engine served over HTTP.
type Engine interface {
	Register(ctx context.Context, in authcore.RegisterInput) (authcore.Account, authcore.Tokens, error)
	Login(ctx context.Context, identifier, password string) (authcore.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (authcore.Tokens, error)
	Revoke(ctx context.Context, refreshToken string) error
	RevokeAll(ctx context.Context, accountID string) error
	Authenticate(ctx context.Context, token string) (string, error)
	Account(ctx context.Context, accountID string) (authcore.Account, error)
	UpdateProfile(ctx context.Context, accountID string, update authcore.ProfileUpdate) (authcore.Account, error)
	RequestCode(ctx context.Context, accountID string) error
	SubmitCode(ctx context.Context, accountID, code string) error
	ProviderAuthURL(provider, state string) (string, error)
	LoginWithProvider(ctx context.Context, provider, code string) (authcore.Account, authcore.Tokens, error)
	Ping(ctx context.Context) error
}

// Config holds handler dependencies.
type Config struct {
	Engine Engine
	Logger *slog.Logger
	// Metrics is mounted on GET /metrics when set.
	Metrics http.Handler
	// TrustForwarded takes the client IP from X-Forwarded-For.
	TrustForwarded bool
	// SecureCookies marks the OAuth state cookie Secure.
	SecureCookies bool
}

type api struct {
	engine        Engine
	logger        *slog.Logger
	secureCookies bool
}

// New builds the authd HTTP handler.
func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &api{
		engine:        cfg.Engine,
		logger:        logger,
		secureCookies: cfg.SecureCookies,
	}
	guard := middleware.Guard(cfg.Engine)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", a.handleRegister)
	mux.HandleFunc("POST /auth/login", a.handleLogin)
	mux.HandleFunc("POST /auth/refresh", a.handleRefresh)
	mux.HandleFunc("POST /auth/logout", a.handleLogout)
	mux.Handle("POST /auth/logout-all", guard(http.HandlerFunc(a.handleLogoutAll)))

	mux.HandleFunc("GET /auth/oauth/{provider}/start", a.handleOAuthStart)
	mux.HandleFunc("GET /auth/oauth/{provider}/callback", a.handleOAuthCallback)

	mux.Handle("POST /auth/verify/request", guard(http.HandlerFunc(a.handleVerifyRequest)))
	mux.Handle("POST /auth/verify/submit", guard(http.HandlerFunc(a.handleVerifySubmit)))

	mux.Handle("GET /auth/me", guard(http.HandlerFunc(a.handleMe)))
	mux.Handle("PATCH /auth/me", guard(http.HandlerFunc(a.handleUpdateMe)))

	mux.HandleFunc("GET /healthz", a.handleHealth)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	return middleware.ClientIP(cfg.TrustForwarded)(mux)
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Ping(r.Context()); err != nil {
		a.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		w.Header().Set("Retry-After", "1")
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}
