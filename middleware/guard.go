package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
)

// Authenticator is the slice of *authcore.Engine used by [Guard].
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

type accountIDContextKey struct{}

// AccountIDFromContext returns the account id stored by a guard.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDContextKey{}).(string)
	return id, ok && id != ""
}

// WithAccountID stores id the way the guards do.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDContextKey{}, id)
}

// Guard rejects requests without a valid bearer token for a live session.
func Guard(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			accountID, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				reject(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

func reject(w http.ResponseWriter, err error) {
	if errors.Is(err, authcore.ErrStoreUnavailable) || errors.Is(err, authcore.ErrCacheUnavailable) {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
