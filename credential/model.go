package credential

import "time"

// Account is the durable identity record. PasswordHash is empty for
// provider-only accounts.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Verified     bool

	DisplayName string
	AvatarURL   string
	Bio         string

	Providers []ProviderLink

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the account can sign in with a password.
func (a Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// ProviderLink binds an external identity provider subject to an account.
type ProviderLink struct {
	Provider string
	Subject  string
	LinkedAt time.Time
}

// ProfileUpdate carries optional profile mutations. Nil fields are left
// untouched.
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
	Bio         *string
}

// RefreshCredential is the stored half of a refresh secret. Only the SHA-256
// of the secret is kept; TokenHash is the unique lookup key.
type RefreshCredential struct {
	ID        string
	SessionID string
	AccountID string
	TokenHash [32]byte

	CreatedAt        time.Time
	SessionStartedAt time.Time
	ExpiresAt        time.Time

	SupersededAt *time.Time
	RevokedAt    *time.Time
	ReplacedBy   string
}

// Valid reports whether the credential can still authenticate at now.
func (c RefreshCredential) Valid(now time.Time) bool {
	return c.SupersededAt == nil && c.RevokedAt == nil && now.Before(c.ExpiresAt)
}

// State classifies a credential for error mapping.
func (c RefreshCredential) State(now time.Time) State {
	switch {
	case c.RevokedAt != nil:
		return StateRevoked
	case c.SupersededAt != nil:
		return StateSuperseded
	case !now.Before(c.ExpiresAt):
		return StateExpired
	default:
		return StateValid
	}
}

// Rotation describes the credential that replaces a rotated one. Session,
// account and session start are inherited from the credential it replaces.
type Rotation struct {
	ID        string
	TokenHash [32]byte
	TTL       time.Duration
	// AbsoluteLifetime caps expiry at SessionStartedAt+AbsoluteLifetime.
	// Zero disables the cap.
	AbsoluteLifetime time.Duration
}

// Next builds the replacement for prev at now. ok is false when the session
// has no lifetime left.
func (r Rotation) Next(prev RefreshCredential, now time.Time) (next RefreshCredential, ok bool) {
	expires := now.Add(r.TTL)
	if r.AbsoluteLifetime > 0 {
		if limit := prev.SessionStartedAt.Add(r.AbsoluteLifetime); limit.Before(expires) {
			expires = limit
		}
	}
	if !now.Before(expires) {
		return RefreshCredential{}, false
	}
	return RefreshCredential{
		ID:               r.ID,
		SessionID:        prev.SessionID,
		AccountID:        prev.AccountID,
		TokenHash:        r.TokenHash,
		CreatedAt:        now,
		SessionStartedAt: prev.SessionStartedAt,
		ExpiresAt:        expires,
	}, true
}

// State is the lifecycle position of a RefreshCredential.
type State uint8

const (
	StateValid State = iota
	StateSuperseded
	StateRevoked
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateSuperseded:
		return "superseded"
	case StateRevoked:
		return "revoked"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}
