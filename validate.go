package authcore

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/authcore/credential"
)

const (
	maxEmailBytes       = 254
	minUsernameRunes    = 3
	maxUsernameRunes    = 32
	maxDisplayNameRunes = 64
	maxAvatarURLBytes   = 2048
	maxBioRunes         = 500
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidRequest}, args...)...)
}

// normalizeEmail validates a bare address and returns its unique-key form.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > maxEmailBytes {
		return "", invalid("email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", invalid("email")
	}
	return credential.NormalizeEmail(email), nil
}

// normalizeUsername allows letters, digits and "._-". Empty is allowed.
func normalizeUsername(username string) (string, error) {
	username = credential.NormalizeUsername(username)
	if username == "" {
		return "", nil
	}
	if strings.Contains(username, "@") {
		return "", invalid("username must not contain @")
	}
	n := utf8.RuneCountInString(username)
	if n < minUsernameRunes || n > maxUsernameRunes {
		return "", invalid("username length")
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		default:
			return "", invalid("username characters")
		}
	}
	return username, nil
}

func validateDisplayName(name string) error {
	if !utf8.ValidString(name) || utf8.RuneCountInString(name) > maxDisplayNameRunes {
		return invalid("display name")
	}
	return nil
}

func validateProfile(update ProfileUpdate) error {
	if update.DisplayName != nil {
		if err := validateDisplayName(*update.DisplayName); err != nil {
			return err
		}
	}
	if update.AvatarURL != nil && *update.AvatarURL != "" {
		raw := *update.AvatarURL
		u, err := url.Parse(raw)
		if err != nil || len(raw) > maxAvatarURLBytes || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return invalid("avatar url")
		}
	}
	if update.Bio != nil {
		if !utf8.ValidString(*update.Bio) || utf8.RuneCountInString(*update.Bio) > maxBioRunes {
			return invalid("bio")
		}
	}
	return nil
}
