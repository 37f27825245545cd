package credential

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeEmail returns the canonical form used for the unique email key.
// Folding is Unicode-aware so "Élise@Example.com" and "élise@example.com"
// collide.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// NormalizeUsername trims and folds a username.
func NormalizeUsername(username string) string {
	return cases.Fold().String(strings.TrimSpace(username))
}
