package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/mail"
	"github.com/MrEthical07/authcore/oauth"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/session"
)

// Engine is the authentication and session lifecycle engine. Build one with
// [Builder]; all methods are safe for concurrent use.
type Engine struct {
	config Config

	store        credential.Store
	cacheBackend cache.Cache
	sessions     *session.Cache
	limiter      *rate.Limiter
	codes        *stores.VerificationStore
	mailer       *mail.Dispatcher
	providers    map[string]oauth.Provider

	hasher  *password.Hasher
	jwt     *jwt.Manager
	metrics *Metrics
	logger  *slog.Logger

	now     func() time.Time
	newCode func(digits int) (string, error)
}

// Close drains the mail queue. The store and Redis client belong to the
// caller and stay open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.mailer.Close()
}

// Ping checks the durable store and the session cache.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.store.Ping(sctx); err != nil {
		return e.storeErr(err)
	}

	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := e.cacheBackend.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
	}
	return nil
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// MailDropped reports verification emails dropped because the mail queue
// was full.
func (e *Engine) MailDropped() uint64 {
	if e == nil {
		return 0
	}
	_, _, dropped := e.mailer.Stats()
	return dropped
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Store.OpTimeout)
}

// storeErr maps backend failures to ErrStoreUnavailable and passes domain
// errors through.
func (e *Engine) storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, credential.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		e.metricInc(MetricStoreError)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

// limit counts one attempt against (scope, key). A limiter outage fails
// closed.
func (e *Engine) limit(ctx context.Context, scope rate.Scope, key string) error {
	retryAfter, ok, err := e.limiter.Hit(ctx, scope, key)
	if err != nil {
		e.logger.WarnContext(ctx, "rate limiter unavailable",
			slog.String("scope", string(scope)),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if !ok {
		e.metricInc(MetricRateLimited)
		return &RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}
