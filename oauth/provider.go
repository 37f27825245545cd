package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// ErrExchange wraps every code-exchange or userinfo failure.
var ErrExchange = errors.New("oauth: exchange failed")

const maxUserInfoBytes = 1 << 20

// Identity is what a provider asserts about the signed-in user.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
}

// Provider is the contract the engine consumes.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// Fields maps Identity fields to gjson paths in the userinfo document.
// An empty path leaves the field unset.
type Fields struct {
	Subject       string
	Email         string
	EmailVerified string
	Name          string
	AvatarURL     string
}

// Config describes one OAuth2 provider.
type Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	Fields       Fields
	// Timeout bounds the exchange plus userinfo fetch; zero selects 10s.
	Timeout time.Duration
	// HTTPClient overrides the transport used for both calls.
	HTTPClient *http.Client
}

// OAuth2 is a [Provider] backed by golang.org/x/oauth2.
type OAuth2 struct {
	name        string
	oauth       *oauth2.Config
	userInfoURL string
	fields      Fields
	timeout     time.Duration
	client      *http.Client
}

// New validates cfg and returns a provider.
func New(cfg Config) (*OAuth2, error) {
	cfg.Name = strings.ToLower(strings.TrimSpace(cfg.Name))
	switch {
	case cfg.Name == "":
		return nil, errors.New("oauth: provider name is required")
	case cfg.ClientID == "":
		return nil, errors.New("oauth: client id is required")
	case cfg.Endpoint.TokenURL == "" || cfg.Endpoint.AuthURL == "":
		return nil, errors.New("oauth: endpoint urls are required")
	case cfg.UserInfoURL == "":
		return nil, errors.New("oauth: userinfo url is required")
	case cfg.Fields.Subject == "":
		return nil, errors.New("oauth: subject field path is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &OAuth2{
		name: cfg.Name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     cfg.Endpoint,
		},
		userInfoURL: cfg.UserInfoURL,
		fields:      cfg.Fields,
		timeout:     timeout,
		client:      cfg.HTTPClient,
	}, nil
}

func (p *OAuth2) Name() string { return p.name }

// AuthCodeURL returns the consent URL carrying state.
func (p *OAuth2) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades code for a token and reads the userinfo document.
func (p *OAuth2) Exchange(ctx context.Context, code string) (Identity, error) {
	if strings.TrimSpace(code) == "" {
		return Identity{}, fmt.Errorf("%w: empty authorization code", ErrExchange)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: token: %v", ErrExchange, err)
	}

	body, err := p.fetchUserInfo(ctx, tok)
	if err != nil {
		return Identity{}, err
	}

	return p.parseIdentity(body)
}

func (p *OAuth2) fetchUserInfo(ctx context.Context, tok *oauth2.Token) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", ErrExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", ErrExchange, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", ErrExchange, err)
	}
	return body, nil
}

func (p *OAuth2) parseIdentity(body []byte) (Identity, error) {
	if !gjson.ValidBytes(body) {
		return Identity{}, fmt.Errorf("%w: userinfo is not valid json", ErrExchange)
	}

	get := func(path string) gjson.Result {
		if path == "" {
			return gjson.Result{}
		}
		return gjson.GetBytes(body, path)
	}

	id := Identity{
		Provider:      p.name,
		Subject:       get(p.fields.Subject).String(),
		Email:         strings.TrimSpace(get(p.fields.Email).String()),
		EmailVerified: get(p.fields.EmailVerified).Bool(),
		Name:          get(p.fields.Name).String(),
		AvatarURL:     get(p.fields.AvatarURL).String(),
	}
	if id.Subject == "" {
		return Identity{}, fmt.Errorf("%w: userinfo has no subject", ErrExchange)
	}
	if id.Email == "" {
		id.EmailVerified = false
	}
	return id, nil
}
