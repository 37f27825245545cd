package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/authcore"
)

const maxRequestBody = 64 << 10

var errBadBody = errors.New("invalid request body")

// decode reads exactly one JSON object into dst. Unknown fields and
// trailing data are errors.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return errBadBody
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type tokensResponse struct {
	AccessToken      string    `json:"access_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	SessionID        string    `json:"session_id"`
}

func toTokens(t authcore.Tokens) tokensResponse {
	return tokensResponse{
		AccessToken:      t.AccessToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  t.AccessExpiresAt.UTC(),
		RefreshToken:     t.RefreshToken,
		RefreshExpiresAt: t.RefreshExpiresAt.UTC(),
		SessionID:        t.SessionID,
	}
}

type accountResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username,omitempty"`
	Verified    bool      `json:"verified"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Providers   []string  `json:"providers,omitempty"`
	HasPassword bool      `json:"has_password"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAccount(a authcore.Account) accountResponse {
	resp := accountResponse{
		ID:          a.ID,
		Email:       a.Email,
		Username:    a.Username,
		Verified:    a.Verified,
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
		Bio:         a.Bio,
		HasPassword: a.HasPassword(),
		CreatedAt:   a.CreatedAt.UTC(),
	}
	for _, p := range a.Providers {
		resp.Providers = append(resp.Providers, p.Provider)
	}
	return resp
}

type sessionResponse struct {
	Account accountResponse `json:"account"`
	Tokens  tokensResponse  `json:"tokens"`
}
