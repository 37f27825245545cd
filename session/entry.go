package session

import "time"

// Entry is the cached projection of an active session.
type Entry struct {
	SessionID string
	AccountID string
	// ExpiresAt is the unix second at which the backing refresh credential
	// expires. Entries are never served past it.
	ExpiresAt int64
}

// Live reports whether the entry may still be served at now.
func (e Entry) Live(now time.Time) bool {
	return now.Unix() < e.ExpiresAt
}
