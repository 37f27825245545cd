package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/oauth"
)

// ProviderAuthURL returns the consent URL of a registered provider. state
// is opaque to the engine; the caller must bind it to the browser.
func (e *Engine) ProviderAuthURL(provider, state string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	p, err := e.provider(provider)
	if err != nil {
		return "", err
	}
	if state == "" {
		return "", invalid("state")
	}
	return p.AuthCodeURL(state), nil
}

func (e *Engine) provider(name string) (oauth.Provider, error) {
	p, ok := e.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// LoginWithProvider exchanges an authorization code and signs in the
// identity it names.
//
// A known (provider, subject) signs in its account. Otherwise an account
// with the same email gets the provider linked, but only when the provider
// asserts the email is verified; an unverified match fails with
// ErrAccountExists. With no match a provider-only account is created.
func (e *Engine) LoginWithProvider(ctx context.Context, provider, code string) (Account, Tokens, error) {
	if e == nil {
		return Account{}, Tokens{}, ErrEngineNotReady
	}
	p, err := e.provider(provider)
	if err != nil {
		return Account{}, Tokens{}, err
	}
	if code == "" {
		return Account{}, Tokens{}, invalid("code")
	}

	identity, err := p.Exchange(ctx, code)
	if err == nil && (identity.Subject == "" || identity.Email == "") {
		err = errors.New("identity without subject or email")
	}
	if err != nil {
		e.metricInc(MetricOAuthLoginFailure)
		e.logger.WarnContext(ctx, "provider exchange failed",
			slog.String("provider", p.Name()),
			slog.Any("error", err),
		)
		return Account{}, Tokens{}, fmt.Errorf("%w: %v", ErrProviderError, err)
	}

	account, err := e.resolveIdentity(ctx, p.Name(), identity)
	if err != nil {
		e.metricInc(MetricOAuthLoginFailure)
		return Account{}, Tokens{}, err
	}

	tokens, err := e.issueSession(ctx, account.ID)
	if err != nil {
		return Account{}, Tokens{}, err
	}
	e.metricInc(MetricOAuthLoginSuccess)
	return account, tokens, nil
}

func (e *Engine) resolveIdentity(ctx context.Context, provider string, id oauth.Identity) (Account, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	account, err := e.store.GetAccountByProvider(sctx, provider, id.Subject)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, credential.ErrNotFound) {
		return Account{}, e.storeErr(err)
	}

	now := e.now()
	link := credential.ProviderLink{Provider: provider, Subject: id.Subject, LinkedAt: now}
	email := credential.NormalizeEmail(id.Email)

	account, err = e.store.GetAccountByEmail(sctx, email)
	switch {
	case err == nil:
		if !id.EmailVerified {
			return Account{}, ErrAccountExists
		}
		if err := e.store.LinkProvider(sctx, account.ID, link); err != nil {
			if errors.Is(err, credential.ErrConflict) {
				return Account{}, ErrAccountExists
			}
			return Account{}, e.storeErr(err)
		}
		account.Providers = append(account.Providers, link)
		if !account.Verified {
			if err := e.store.MarkVerified(sctx, account.ID, now); err != nil {
				return Account{}, e.storeErr(err)
			}
			account.Verified = true
		}
		e.logger.InfoContext(ctx, "provider linked to existing account",
			slog.String("account_id", account.ID),
			slog.String("provider", provider),
		)
		return account, nil
	case !errors.Is(err, credential.ErrNotFound):
		return Account{}, e.storeErr(err)
	}

	account, err = e.store.CreateAccount(sctx, Account{
		ID:          uuid.NewString(),
		Email:       email,
		Verified:    id.EmailVerified,
		DisplayName: truncateRunes(strings.TrimSpace(id.Name), maxDisplayNameRunes),
		AvatarURL:   id.AvatarURL,
		Providers:   []credential.ProviderLink{link},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, credential.ErrConflict) {
			return Account{}, ErrAccountExists
		}
		return Account{}, e.storeErr(err)
	}
	return account, nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
