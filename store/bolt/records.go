package bolt

import (
	"time"

	"github.com/MrEthical07/authcore/credential"
)

type accountRecord struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	Username     string           `json:"username,omitempty"`
	PasswordHash string           `json:"password_hash,omitempty"`
	Verified     bool             `json:"verified"`
	DisplayName  string           `json:"display_name,omitempty"`
	AvatarURL    string           `json:"avatar_url,omitempty"`
	Bio          string           `json:"bio,omitempty"`
	Providers    []providerRecord `json:"providers,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type providerRecord struct {
	Provider string    `json:"provider"`
	Subject  string    `json:"subject"`
	LinkedAt time.Time `json:"linked_at"`
}

type credentialRecord struct {
	ID               string     `json:"id"`
	SessionID        string     `json:"session_id"`
	AccountID        string     `json:"account_id"`
	TokenHash        []byte     `json:"token_hash"`
	CreatedAt        time.Time  `json:"created_at"`
	SessionStartedAt time.Time  `json:"session_started_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	SupersededAt     *time.Time `json:"superseded_at,omitempty"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy       string     `json:"replaced_by,omitempty"`
}

func fromAccount(a credential.Account) accountRecord {
	r := accountRecord{
		ID:           a.ID,
		Email:        a.Email,
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Verified:     a.Verified,
		DisplayName:  a.DisplayName,
		AvatarURL:    a.AvatarURL,
		Bio:          a.Bio,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	for _, l := range a.Providers {
		r.Providers = append(r.Providers, providerRecord(l))
	}
	return r
}

func (r accountRecord) toAccount() credential.Account {
	a := credential.Account{
		ID:           r.ID,
		Email:        r.Email,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Verified:     r.Verified,
		DisplayName:  r.DisplayName,
		AvatarURL:    r.AvatarURL,
		Bio:          r.Bio,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	for _, p := range r.Providers {
		a.Providers = append(a.Providers, credential.ProviderLink(p))
	}
	return a
}

func fromCredential(c credential.RefreshCredential) credentialRecord {
	return credentialRecord{
		ID:               c.ID,
		SessionID:        c.SessionID,
		AccountID:        c.AccountID,
		TokenHash:        c.TokenHash[:],
		CreatedAt:        c.CreatedAt,
		SessionStartedAt: c.SessionStartedAt,
		ExpiresAt:        c.ExpiresAt,
		SupersededAt:     c.SupersededAt,
		RevokedAt:        c.RevokedAt,
		ReplacedBy:       c.ReplacedBy,
	}
}

func (r credentialRecord) toCredential() credential.RefreshCredential {
	c := credential.RefreshCredential{
		ID:               r.ID,
		SessionID:        r.SessionID,
		AccountID:        r.AccountID,
		CreatedAt:        r.CreatedAt,
		SessionStartedAt: r.SessionStartedAt,
		ExpiresAt:        r.ExpiresAt,
		SupersededAt:     r.SupersededAt,
		RevokedAt:        r.RevokedAt,
		ReplacedBy:       r.ReplacedBy,
	}
	copy(c.TokenHash[:], r.TokenHash)
	return c
}

// inactiveBefore reports whether the record stopped being usable before cutoff.
func (r credentialRecord) inactiveBefore(cutoff time.Time) bool {
	return r.ExpiresAt.Before(cutoff) ||
		(r.SupersededAt != nil && r.SupersededAt.Before(cutoff)) ||
		(r.RevokedAt != nil && r.RevokedAt.Before(cutoff))
}
