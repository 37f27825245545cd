package authcore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/session"
)

// issueSession starts a new session for accountID. Other sessions of the
// account are untouched.
func (e *Engine) issueSession(ctx context.Context, accountID string) (Tokens, error) {
	now := e.now()

	sid, err := internal.NewSessionID()
	if err != nil {
		return Tokens{}, err
	}
	secret, hash, err := internal.NewRefreshToken()
	if err != nil {
		return Tokens{}, err
	}

	cred := credential.RefreshCredential{
		ID:               uuid.NewString(),
		SessionID:        sid.String(),
		AccountID:        accountID,
		TokenHash:        hash,
		CreatedAt:        now,
		SessionStartedAt: now,
		ExpiresAt:        e.refreshExpiry(now, now),
	}

	sctx, cancel := e.storeCtx(ctx)
	err = e.store.CreateCredential(sctx, cred)
	cancel()
	if err != nil {
		return Tokens{}, e.storeErr(err)
	}

	tokens, err := e.tokensFor(cred, secret)
	if err != nil {
		return Tokens{}, err
	}
	e.primeSession(ctx, cred, now)
	e.metricInc(MetricSessionCreated)
	return tokens, nil
}

func (e *Engine) refreshExpiry(sessionStart, now time.Time) time.Time {
	expires := now.Add(e.config.Session.RefreshTTL)
	if lifetime := e.config.Session.AbsoluteLifetime; lifetime > 0 {
		if limit := sessionStart.Add(lifetime); limit.Before(expires) {
			expires = limit
		}
	}
	return expires
}

func (e *Engine) tokensFor(cred credential.RefreshCredential, secret string) (Tokens, error) {
	access, accessExp, err := e.jwt.CreateAccess(cred.AccountID, cred.SessionID, cred.ExpiresAt)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     secret,
		RefreshExpiresAt: cred.ExpiresAt,
		SessionID:        cred.SessionID,
	}, nil
}

// primeSession caches the session for at most the credential's remaining
// lifetime. A session evicted by a revocation stays evicted. Cache failures
// are logged and otherwise ignored.
func (e *Engine) primeSession(ctx context.Context, cred credential.RefreshCredential, now time.Time) {
	entry := session.Entry{
		SessionID: cred.SessionID,
		AccountID: cred.AccountID,
		ExpiresAt: cred.ExpiresAt.Unix(),
	}
	if _, err := e.sessions.Prime(ctx, entry, now); err != nil {
		e.metricInc(MetricCacheError)
		e.logger.WarnContext(ctx, "session cache prime failed",
			slog.String("session_id", cred.SessionID),
			slog.Any("error", err),
		)
	}
}

func (e *Engine) evictSessions(ctx context.Context, sessionIDs ...string) {
	if err := e.sessions.Evict(ctx, sessionIDs...); err != nil {
		e.metricInc(MetricCacheError)
		e.logger.WarnContext(ctx, "session cache evict failed",
			slog.Int("sessions", len(sessionIDs)),
			slog.Any("error", err),
		)
	}
}

// Refresh rotates a refresh secret: the presented secret is invalidated and
// a new access/refresh pair for the same session is returned. Of N
// concurrent calls with one secret exactly one succeeds.
//
// Unknown, expired and revoked secrets fail with ErrInvalidCredential. A
// secret that was already rotated fails with ErrInvalidCredential joined
// with ErrRefreshReuse and, under ReuseRevokeAll, revokes every session of
// the account.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	if e == nil {
		return Tokens{}, ErrEngineNotReady
	}

	hash, err := internal.HashRefreshToken(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return Tokens{}, ErrInvalidCredential
	}

	key := ClientIPFromContext(ctx)
	if key == "" {
		key = "tok:" + hex.EncodeToString(hash[:8])
	}
	if err := e.limit(ctx, rate.ScopeRefresh, key); err != nil {
		return Tokens{}, err
	}

	secret, nextHash, err := internal.NewRefreshToken()
	if err != nil {
		return Tokens{}, err
	}
	now := e.now()
	rotation := credential.Rotation{
		ID:               uuid.NewString(),
		TokenHash:        nextHash,
		TTL:              e.config.Session.RefreshTTL,
		AbsoluteLifetime: e.config.Session.AbsoluteLifetime,
	}

	sctx, cancel := e.storeCtx(ctx)
	prev, next, err := e.store.Rotate(sctx, hash, rotation, now)
	cancel()
	switch {
	case err == nil:
	case errors.Is(err, credential.ErrSuperseded):
		e.metricInc(MetricRefreshFailure)
		e.handleReuse(ctx, prev, now)
		return Tokens{}, fmt.Errorf("%w: %w", ErrInvalidCredential, ErrRefreshReuse)
	case errors.Is(err, credential.ErrNotFound), errors.Is(err, credential.ErrInactive):
		e.metricInc(MetricRefreshFailure)
		return Tokens{}, ErrInvalidCredential
	default:
		e.metricInc(MetricRefreshFailure)
		return Tokens{}, e.storeErr(err)
	}

	tokens, err := e.tokensFor(next, secret)
	if err != nil {
		return Tokens{}, err
	}
	e.primeSession(ctx, next, now)
	e.metricInc(MetricRefreshSuccess)
	return tokens, nil
}

// handleReuse applies the reuse policy to the owner of a rotated secret.
func (e *Engine) handleReuse(ctx context.Context, stale credential.RefreshCredential, now time.Time) {
	e.metricInc(MetricRefreshReuseDetected)

	withinGrace := e.config.Session.ReuseGrace > 0 &&
		stale.SupersededAt != nil &&
		now.Sub(*stale.SupersededAt) <= e.config.Session.ReuseGrace

	e.logger.WarnContext(ctx, "rotated refresh secret presented again",
		slog.String("account_id", stale.AccountID),
		slog.String("session_id", stale.SessionID),
		slog.String("policy", e.config.Session.ReusePolicy.String()),
		slog.Bool("within_grace", withinGrace),
	)

	if e.config.Session.ReusePolicy != ReuseRevokeAll || withinGrace {
		return
	}
	if _, err := e.revokeAccount(ctx, stale.AccountID, now); err != nil {
		e.logger.ErrorContext(ctx, "revoke after refresh reuse failed",
			slog.String("account_id", stale.AccountID),
			slog.Any("error", err),
		)
	}
}

// Revoke ends the session holding refreshToken and evicts it from the cache.
// Unknown or already invalid secrets are a no-op.
func (e *Engine) Revoke(ctx context.Context, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	hash, err := internal.HashRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	sctx, cancel := e.storeCtx(ctx)
	cred, revoked, err := e.store.Revoke(sctx, hash, e.now())
	cancel()
	if err != nil {
		return e.storeErr(err)
	}
	if !revoked {
		return nil
	}

	e.evictSessions(ctx, cred.SessionID)
	e.metricInc(MetricLogout)
	return nil
}

// RevokeAll ends every session of accountID.
func (e *Engine) RevokeAll(ctx context.Context, accountID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if _, err := e.revokeAccount(ctx, accountID, e.now()); err != nil {
		return err
	}
	e.metricInc(MetricLogoutAll)
	return nil
}

func (e *Engine) revokeAccount(ctx context.Context, accountID string, now time.Time) ([]string, error) {
	sctx, cancel := e.storeCtx(ctx)
	sessions, err := e.store.RevokeAccount(sctx, accountID, now)
	cancel()
	if err != nil {
		return nil, e.storeErr(err)
	}
	e.evictSessions(ctx, sessions...)
	return sessions, nil
}

// VerifyAccessToken checks signature and expiry only and returns the
// account id. It never touches the cache or the store.
func (e *Engine) VerifyAccessToken(token string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	claims, err := e.verifyAccess(token)
	if err != nil {
		return "", err
	}
	return claims.UID, nil
}

func (e *Engine) verifyAccess(token string) (*jwt.AccessClaims, error) {
	claims, err := e.jwt.ParseAccess(token)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenInvalid
	}
}
