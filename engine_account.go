package authcore

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/password"
)

// Register creates a password account and signs it in. When
// Verification.SendOnRegister is set a verification code is sent as well;
// failing to send it does not fail the registration.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (Account, Tokens, error) {
	if e == nil {
		return Account{}, Tokens{}, ErrEngineNotReady
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Account{}, Tokens{}, err
	}

	key := ClientIPFromContext(ctx)
	if key == "" {
		key = "email:" + email
	}
	if err := e.limit(ctx, rate.ScopeRegister, key); err != nil {
		return Account{}, Tokens{}, err
	}

	username, err := normalizeUsername(in.Username)
	if err != nil {
		return Account{}, Tokens{}, err
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if err := validateDisplayName(displayName); err != nil {
		return Account{}, Tokens{}, err
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong) {
			return Account{}, Tokens{}, invalid("%v", err)
		}
		return Account{}, Tokens{}, err
	}

	now := e.now()
	sctx, cancel := e.storeCtx(ctx)
	account, err := e.store.CreateAccount(sctx, Account{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	cancel()
	if err != nil {
		if errors.Is(err, credential.ErrConflict) {
			e.metricInc(MetricRegisterDuplicate)
			return Account{}, Tokens{}, ErrAccountExists
		}
		return Account{}, Tokens{}, e.storeErr(err)
	}

	tokens, err := e.issueSession(ctx, account.ID)
	if err != nil {
		return Account{}, Tokens{}, err
	}
	e.metricInc(MetricRegisterSuccess)

	if e.config.Verification.SendOnRegister {
		if err := e.sendCode(ctx, account); err != nil {
			e.logger.WarnContext(ctx, "verification code not sent after registration",
				slog.String("account_id", account.ID),
				slog.Any("error", err),
			)
		}
	}

	return account, tokens, nil
}

// Login signs in with an email or username and a password. Unknown
// identifiers, provider-only accounts and wrong passwords all fail with
// ErrInvalidCredential after comparable work.
func (e *Engine) Login(ctx context.Context, identifier, pw string) (Tokens, error) {
	if e == nil {
		return Tokens{}, ErrEngineNotReady
	}

	identifier = credential.NormalizeEmail(identifier)
	if identifier == "" || pw == "" {
		return Tokens{}, ErrInvalidCredential
	}

	if err := e.limit(ctx, rate.ScopeLogin, "id:"+identifier); err != nil {
		return Tokens{}, err
	}
	if ip := ClientIPFromContext(ctx); ip != "" {
		if err := e.limit(ctx, rate.ScopeLogin, "ip:"+ip); err != nil {
			return Tokens{}, err
		}
	}

	account, err := e.lookupIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			e.hasher.VerifyDummy(pw)
			e.metricInc(MetricLoginFailure)
			return Tokens{}, ErrInvalidCredential
		}
		return Tokens{}, e.storeErr(err)
	}
	if !account.HasPassword() {
		e.hasher.VerifyDummy(pw)
		e.metricInc(MetricLoginFailure)
		return Tokens{}, ErrInvalidCredential
	}

	ok, err := e.hasher.Verify(pw, account.PasswordHash)
	if err != nil || !ok {
		if err != nil && !errors.Is(err, password.ErrTooLong) {
			e.logger.ErrorContext(ctx, "stored password hash unreadable",
				slog.String("account_id", account.ID),
				slog.Any("error", err),
			)
		}
		e.metricInc(MetricLoginFailure)
		return Tokens{}, ErrInvalidCredential
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHash(ctx, account, pw)
	}

	tokens, err := e.issueSession(ctx, account.ID)
	if err != nil {
		return Tokens{}, err
	}
	e.metricInc(MetricLoginSuccess)
	return tokens, nil
}

func (e *Engine) lookupIdentifier(ctx context.Context, identifier string) (Account, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if strings.Contains(identifier, "@") {
		return e.store.GetAccountByEmail(sctx, identifier)
	}
	return e.store.GetAccountByUsername(sctx, identifier)
}

// upgradeHash rehashes pw when the stored hash used weaker parameters.
// Failures leave the old hash in place.
func (e *Engine) upgradeHash(ctx context.Context, account Account, pw string) {
	needs, err := e.hasher.NeedsUpgrade(account.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.hasher.Hash(pw)
	if err != nil {
		return
	}

	sctx, cancel := e.storeCtx(ctx)
	err = e.store.UpdatePasswordHash(sctx, account.ID, hash, e.now())
	cancel()
	if err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade failed",
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
	}
}

// UpdateProfile applies the non-nil fields of update and returns the
// resulting account.
func (e *Engine) UpdateProfile(ctx context.Context, accountID string, update ProfileUpdate) (Account, error) {
	if e == nil {
		return Account{}, ErrEngineNotReady
	}
	if update.DisplayName != nil {
		trimmed := strings.TrimSpace(*update.DisplayName)
		update.DisplayName = &trimmed
	}
	if err := validateProfile(update); err != nil {
		return Account{}, err
	}

	sctx, cancel := e.storeCtx(ctx)
	account, err := e.store.UpdateProfile(sctx, accountID, update, e.now())
	cancel()
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return Account{}, ErrInvalidCredential
		}
		return Account{}, e.storeErr(err)
	}
	return account, nil
}
