package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
)

// VerifiedLoader is the slice of *authcore.Engine used by [RequireVerified].
type VerifiedLoader interface {
	CurrentVerifiedAccount(ctx context.Context, accountID string) (authcore.Account, error)
}

type accountContextKey struct{}

// AccountFromContext returns the account loaded by [RequireVerified].
func AccountFromContext(ctx context.Context) (authcore.Account, bool) {
	a, ok := ctx.Value(accountContextKey{}).(authcore.Account)
	return a, ok
}

// RequireVerified must run inside [Guard]. Unverified accounts get 403.
func RequireVerified(loader VerifiedLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, ok := AccountIDFromContext(r.Context())
			if loader == nil || !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			account, err := loader.CurrentVerifiedAccount(r.Context(), accountID)
			if err != nil {
				if errors.Is(err, authcore.ErrVerificationRequired) {
					http.Error(w, "verification required", http.StatusForbidden)
					return
				}
				reject(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey{}, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
