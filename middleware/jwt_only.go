package middleware

import "net/http"

// TokenVerifier is the slice of *authcore.Engine used by [RequireJWTOnly].
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// RequireJWTOnly accepts any well-signed, unexpired access token without
// consulting session state. A revoked session stays accepted until its
// access token expires; use [Guard] where that matters.
func RequireJWTOnly(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if v == nil || !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			accountID, err := v.VerifyAccessToken(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}
