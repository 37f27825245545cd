package credential

import (
	"context"
	"time"
)

// AccountStore persists accounts and their provider links.
type AccountStore interface {
	// CreateAccount inserts a new account. Email and Username are unique;
	// a clash returns ErrConflict.
	CreateAccount(ctx context.Context, account Account) (Account, error)
	GetAccountByID(ctx context.Context, id string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	GetAccountByUsername(ctx context.Context, username string) (Account, error)
	GetAccountByProvider(ctx context.Context, provider, subject string) (Account, error)
	// LinkProvider attaches a provider subject to an existing account.
	// Linking the same (provider, subject) to the same account is a no-op.
	LinkProvider(ctx context.Context, accountID string, link ProviderLink) error
	// MarkVerified sets the verified flag. Idempotent.
	MarkVerified(ctx context.Context, accountID string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, accountID, hash string, at time.Time) error
	UpdateProfile(ctx context.Context, accountID string, update ProfileUpdate, at time.Time) (Account, error)
}

// CredentialStore persists refresh credentials.
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred RefreshCredential) error
	// Rotate atomically supersedes the valid credential matching
	// presentedHash and inserts its replacement, built by rotation.Next, in
	// the same transaction. On success it returns both credentials.
	//
	// Failure modes: ErrNotFound (unknown hash), ErrSuperseded (hash was
	// already rotated; prev identifies the account), ErrInactive (revoked,
	// expired, or the session has no lifetime left).
	Rotate(ctx context.Context, presentedHash [32]byte, rotation Rotation, now time.Time) (prev, next RefreshCredential, err error)
	// Revoke marks the credential matching hash revoked. The boolean is
	// false when nothing valid was revoked.
	Revoke(ctx context.Context, hash [32]byte, now time.Time) (RefreshCredential, bool, error)
	// RevokeAccount revokes every valid credential of the account and
	// returns the affected session ids.
	RevokeAccount(ctx context.Context, accountID string, now time.Time) ([]string, error)
	// ActiveSession returns the valid credential heading sessionID.
	ActiveSession(ctx context.Context, sessionID string, now time.Time) (RefreshCredential, error)
	// DeleteInactive removes credentials that expired, or were superseded
	// or revoked, before cutoff.
	DeleteInactive(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is the full durable surface consumed by the engine.
type Store interface {
	AccountStore
	CredentialStore
	Ping(ctx context.Context) error
	Close() error
}
