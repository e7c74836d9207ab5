package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleConfig holds configuration for the Google OAuth provider.
type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_CLIENT_ID,required"`
	ClientSecret string   `env:"GOOGLE_CLIENT_SECRET,required"`
	RedirectURL  string   `env:"GOOGLE_REDIRECT_URL,required"`
	Scopes       []string `env:"GOOGLE_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
}

// GoogleProvider implements Provider against Google's OAuth2 and userinfo
// endpoints: a form POST to the token endpoint followed by a bearer GET of
// the profile.
type GoogleProvider struct {
	conf        *oauth2.Config
	userinfoURL string
	httpClient  *http.Client
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithGoogleHTTPClient overrides the HTTP client used for the token exchange
// and the userinfo fetch.
func WithGoogleHTTPClient(c *http.Client) GoogleOption {
	return func(p *GoogleProvider) { p.httpClient = c }
}

// WithGoogleEndpoints overrides the OAuth2 endpoint and userinfo URL, for
// targeting mock servers in tests.
func WithGoogleEndpoints(endpoint oauth2.Endpoint, userinfoURL string) GoogleOption {
	return func(p *GoogleProvider) {
		p.conf.Endpoint = endpoint
		p.userinfoURL = userinfoURL
	}
}

// NewGoogleProvider creates a Google provider from config.
func NewGoogleProvider(cfg GoogleConfig, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		userinfoURL: googleUserinfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

// AuthURL builds the Google authorization URL. Offline access is requested
// so the token response carries a refresh token.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the code for tokens and fetches the userinfo profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Result, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, ErrExchangeFailed
	}

	u, err := p.fetchUserinfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, ErrExchangeFailed
	}

	return &Result{
		Token: tokenMap(tok),
		Identity: Identity{
			Email: u.Email,
			Name:  u.Name, // may be empty, tolerated
		},
	}, nil
}

type googleUserinfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (p *GoogleProvider) fetchUserinfo(ctx context.Context, accessToken string) (*googleUserinfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}

	var u googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Compile-time interface assertion
var _ Provider = (*GoogleProvider)(nil)
