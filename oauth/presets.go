package oauth

import (
	"golang.org/x/oauth2/endpoints"
)

// Google returns the configuration for Google's OpenID Connect userinfo.
func Google(clientID, clientSecret, redirectURL string) Config {
	return Config{
		Name:         "google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     endpoints.Google,
		UserInfoURL:  "https://openidconnect.googleapis.com/v1/userinfo",
		Fields: Fields{
			Subject:       "sub",
			Email:         "email",
			EmailVerified: "email_verified",
			Name:          "name",
			AvatarURL:     "picture",
		},
	}
}

// GitHub returns the configuration for GitHub's user API. GitHub does not
// assert verification on this document, so identities are never pre-verified.
func GitHub(clientID, clientSecret, redirectURL string) Config {
	return Config{
		Name:         "github",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     endpoints.GitHub,
		UserInfoURL:  "https://api.github.com/user",
		Fields: Fields{
			Subject:   "id",
			Email:     "email",
			Name:      "name",
			AvatarURL: "avatar_url",
		},
	}
}
