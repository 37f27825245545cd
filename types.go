package authcore

import (
	"time"

	"github.com/MrEthical07/authcore/credential"
)

// Account is the durable identity record.
type Account = credential.Account

// ProfileUpdate carries optional profile mutations; nil fields are kept.
type ProfileUpdate = credential.ProfileUpdate

// Tokens is an issued access/refresh pair.
type Tokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	// SessionID is stable across refreshes of one login.
	SessionID string
}

// RegisterInput is the password sign-up request.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
}
