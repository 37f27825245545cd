package httpapi

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/MrEthical07/authcore"
)

const (
	stateCookie = "authcore_oauth_state"
	stateMaxAge = 600
)

func (a *api) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		a.writeError(w, r, err)
		return
	}
	state := base64.RawURLEncoding.EncodeToString(raw[:])

	target, err := a.engine.ProviderAuthURL(provider, state)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	http.SetCookie(w, a.stateCookie(state, stateMaxAge))
	http.Redirect(w, r, target, http.StatusFound)
}

func (a *api) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	query := r.URL.Query()

	// Clear the state whatever the outcome; it is single use.
	http.SetCookie(w, a.stateCookie("", -1))

	cookie, err := r.Cookie(stateCookie)
	state := query.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		a.writeError(w, r, authcore.ErrInvalidRequest)
		return
	}
	if query.Get("error") != "" {
		a.writeError(w, r, authcore.ErrProviderError)
		return
	}

	account, tokens, err := a.engine.LoginWithProvider(r.Context(), provider, query.Get("code"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Account: toAccount(account), Tokens: toTokens(tokens)})
}

func (a *api) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     stateCookie,
		Value:    value,
		Path:     "/auth/oauth/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
