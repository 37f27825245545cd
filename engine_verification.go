package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/mail"
)

// codeRetention keeps a code in Redis past its expiry so that a late
// submission reports ErrCodeExpired instead of ErrNoActiveCode.
const codeRetention = time.Minute

// RequestCode sends a new verification code to the account's email. Any
// pending code is replaced. Requesting a code for an already verified
// account is a no-op.
func (e *Engine) RequestCode(ctx context.Context, accountID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.limit(ctx, rate.ScopeOTPRequest, accountID); err != nil {
		return err
	}

	account, err := e.Account(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Verified {
		return nil
	}
	return e.sendCode(ctx, account)
}

func (e *Engine) sendCode(ctx context.Context, account Account) error {
	code, err := e.newCode(e.config.Verification.CodeDigits)
	if err != nil {
		return err
	}

	now := e.now()
	record := &stores.VerificationRecord{
		AccountID: account.ID,
		CodeHash:  internal.HashCode(code),
		ExpiresAt: now.Add(e.config.Verification.CodeTTL).UnixMilli(),
	}
	if err := e.codes.Save(ctx, record, e.config.Verification.CodeTTL+codeRetention); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	e.metricInc(MetricVerificationRequested)

	msg := mail.Message{
		To:      account.Email,
		Subject: e.config.Verification.Subject,
		Body: fmt.Sprintf("Your verification code is %s.\nIt expires in %d minutes.\n",
			code, int(e.config.Verification.CodeTTL.Minutes())),
	}
	if e.mailer == nil {
		e.logger.WarnContext(ctx, "no mailer configured, verification code not delivered",
			slog.String("account_id", account.ID),
		)
		return nil
	}
	if !e.mailer.Dispatch(msg) {
		e.logger.WarnContext(ctx, "verification email not queued",
			slog.String("account_id", account.ID),
		)
	}
	return nil
}

// SubmitCode checks a verification code and marks the account verified on
// a match. Each code verifies at most once; a mismatch counts against
// Verification.MaxAttempts after which the code is discarded.
func (e *Engine) SubmitCode(ctx context.Context, accountID, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return invalid("code")
	}
	if err := e.limit(ctx, rate.ScopeOTP, accountID); err != nil {
		return err
	}

	record, err := e.codes.Consume(ctx, accountID, internal.HashCode(code), e.config.Verification.MaxAttempts, e.now())
	if err != nil {
		e.metricInc(MetricVerificationFailure)
		switch {
		case errors.Is(err, stores.ErrVerificationNotFound):
			return ErrNoActiveCode
		case errors.Is(err, stores.ErrVerificationExpired):
			return ErrCodeExpired
		case errors.Is(err, stores.ErrVerificationSecretMismatch):
			return ErrCodeMismatch
		default:
			return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
	}

	sctx, cancel := e.storeCtx(ctx)
	err = e.store.MarkVerified(sctx, accountID, e.now())
	cancel()
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return ErrNoActiveCode
		}
		e.restoreCode(ctx, record)
		return e.storeErr(err)
	}
	e.metricInc(MetricVerificationSuccess)
	return nil
}

// restoreCode puts a consumed code back after the store failed to record
// the verification, so the caller can retry with the same code.
func (e *Engine) restoreCode(ctx context.Context, record *stores.VerificationRecord) {
	now := e.now()
	if record.Expired(now) {
		return
	}
	ttl := time.UnixMilli(record.ExpiresAt).Sub(now) + codeRetention
	if _, err := e.codes.Restore(context.WithoutCancel(ctx), record, ttl); err != nil {
		e.logger.WarnContext(ctx, "verification code restore failed",
			slog.String("account_id", record.AccountID),
			slog.Any("error", err),
		)
	}
}
