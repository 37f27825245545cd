package authcore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/session"
)

// Authenticate validates a bearer access token and returns the account id.
//
// The signature and expiry are checked first. The session is then confirmed
// against the cache and, on a miss or cache outage, against the durable
// store. A token whose session was revoked fails with ErrTokenInvalid.
func (e *Engine) Authenticate(ctx context.Context, token string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}()
	}

	accountID, err := e.authenticate(ctx, token)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return "", err
	}
	e.metricInc(MetricAuthenticateSuccess)
	return accountID, nil
}

func (e *Engine) authenticate(ctx context.Context, token string) (string, error) {
	claims, err := e.verifyAccess(token)
	if err != nil {
		return "", err
	}

	now := e.now()
	entry, err := e.sessions.Lookup(ctx, claims.SID, now)
	switch {
	case err == nil:
		e.metricInc(MetricCacheHit)
		if entry.AccountID != claims.UID {
			return "", ErrTokenInvalid
		}
		return claims.UID, nil
	case session.IsRevoked(err):
		e.metricInc(MetricCacheHit)
		return "", ErrTokenInvalid
	case session.IsMiss(err):
		e.metricInc(MetricCacheMiss)
	default:
		e.metricInc(MetricCacheError)
		e.logger.WarnContext(ctx, "session cache lookup failed, using store",
			slog.String("session_id", claims.SID),
			slog.Any("error", err),
		)
	}

	sctx, cancel := e.storeCtx(ctx)
	cred, err := e.store.ActiveSession(sctx, claims.SID, now)
	cancel()
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return "", ErrTokenInvalid
		}
		return "", e.storeErr(err)
	}
	if cred.AccountID != claims.UID {
		return "", ErrTokenInvalid
	}

	e.primeSession(ctx, cred, now)
	return claims.UID, nil
}

// CurrentVerifiedAccount loads an authenticated account and requires its
// email to be verified. The flag is read from the store so a verification
// takes effect on the next request.
func (e *Engine) CurrentVerifiedAccount(ctx context.Context, accountID string) (Account, error) {
	account, err := e.Account(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	if !account.Verified {
		return Account{}, ErrVerificationRequired
	}
	return account, nil
}

// Account loads an account by id. An unknown id fails with
// ErrInvalidCredential.
func (e *Engine) Account(ctx context.Context, accountID string) (Account, error) {
	if e == nil {
		return Account{}, ErrEngineNotReady
	}

	sctx, cancel := e.storeCtx(ctx)
	account, err := e.store.GetAccountByID(sctx, accountID)
	cancel()
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return Account{}, ErrInvalidCredential
		}
		return Account{}, e.storeErr(err)
	}
	return account, nil
}
