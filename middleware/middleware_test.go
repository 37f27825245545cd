package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authcore"
)

type fakeEngine struct {
	accounts map[string]string
	verified map[string]bool
	err      error
}

func (f *fakeEngine) Authenticate(_ context.Context, token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	id, ok := f.accounts[token]
	if !ok {
		return "", authcore.ErrTokenInvalid
	}
	return id, nil
}

func (f *fakeEngine) VerifyAccessToken(token string) (string, error) {
	return f.Authenticate(context.Background(), token)
}

func (f *fakeEngine) CurrentVerifiedAccount(_ context.Context, id string) (authcore.Account, error) {
	if f.err != nil {
		return authcore.Account{}, f.err
	}
	if !f.verified[id] {
		return authcore.Account{}, authcore.ErrVerificationRequired
	}
	return authcore.Account{ID: id, Verified: true}, nil
}

func echoAccount() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := AccountIDFromContext(r.Context())
		fmt.Fprint(w, id)
	})
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGuard(t *testing.T) {
	engine := &fakeEngine{accounts: map[string]string{"good": "acct-1"}}
	h := Guard(engine)(echoAccount())

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "acct-1"},
		{"case-insensitive scheme", "bearer good", http.StatusOK, "acct-1"},
		{"missing header", "", http.StatusUnauthorized, "unauthorized\n"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "unauthorized\n"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "unauthorized\n"},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, "unauthorized\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.header)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestGuardStoreOutageIs503(t *testing.T) {
	engine := &fakeEngine{err: fmt.Errorf("%w: timeout", authcore.ErrStoreUnavailable)}
	rec := serve(Guard(engine)(echoAccount()), "Bearer any")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestGuardNilEngine(t *testing.T) {
	rec := serve(Guard(nil)(echoAccount()), "Bearer good")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireJWTOnly(t *testing.T) {
	engine := &fakeEngine{accounts: map[string]string{"good": "acct-2"}}
	h := RequireJWTOnly(engine)(echoAccount())

	rec := serve(h, "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acct-2", rec.Body.String())

	rec = serve(h, "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireVerified(t *testing.T) {
	engine := &fakeEngine{
		accounts: map[string]string{"verified": "acct-v", "pending": "acct-p"},
		verified: map[string]bool{"acct-v": true},
	}
	h := Guard(engine)(RequireVerified(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		require.True(t, ok)
		fmt.Fprint(w, account.ID)
	})))

	rec := serve(h, "Bearer verified")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acct-v", rec.Body.String())

	rec = serve(h, "Bearer pending")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "verification required\n", rec.Body.String())

	// Without Guard there is no account in context.
	rec = serve(RequireVerified(engine)(echoAccount()), "Bearer verified")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientIP(t *testing.T) {
	var got string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = authcore.ClientIPFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:5123"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	ClientIP(false)(capture).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "198.51.100.4", got)

	ClientIP(true)(capture).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.9", got)

	req.Header.Set("X-Forwarded-For", "garbage")
	ClientIP(true)(capture).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "198.51.100.4", got)
}
