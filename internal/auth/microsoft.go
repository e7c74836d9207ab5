package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// MicrosoftConfig holds configuration for the Microsoft (Azure AD) provider.
// ClientSecret is optional: when set the provider acts as a confidential
// client, otherwise as a public one.
type MicrosoftConfig struct {
	ClientID     string   `env:"MICROSOFT_CLIENT_ID,required"`
	ClientSecret string   `env:"MICROSOFT_CLIENT_SECRET"`
	Authority    string   `env:"MICROSOFT_AUTHORITY,required"` // e.g. https://login.microsoftonline.com/{tenant}/v2.0
	RedirectURL  string   `env:"MICROSOFT_REDIRECT_URL,required"`
	Scopes       []string `env:"MICROSOFT_SCOPES" envSeparator:"," envDefault:"User.Read"`
}

// MicrosoftProvider implements Provider against Azure AD, delegating
// endpoint discovery, code exchange and ID-token verification to the OIDC
// client library. The identity comes from the verified ID-token claims, not
// a separate profile call.
type MicrosoftProvider struct {
	conf     *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewMicrosoftProvider discovers the authority's endpoints and returns a
// configured provider. Discovery is the single network call a confidential
// client performs at construction; AuthURL and claim extraction stay local.
func NewMicrosoftProvider(ctx context.Context, cfg MicrosoftConfig) (*MicrosoftProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Authority)
	if err != nil {
		return nil, fmt.Errorf("microsoft: discover authority %q: %w", cfg.Authority, err)
	}

	// An ID token requires the openid scope; profile adds the name claim.
	// Resource scopes like User.Read come from config.
	scopes := cfg.Scopes
	if !slices.Contains(scopes, oidc.ScopeOpenID) {
		scopes = append([]string{oidc.ScopeOpenID, "profile"}, scopes...)
	}

	return &MicrosoftProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     provider.Endpoint(),
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (p *MicrosoftProvider) Name() string {
	return ProviderMicrosoft
}

// AuthURL builds the Azure AD authorization URL for the given state.
func (p *MicrosoftProvider) AuthURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

// Exchange trades the code for tokens and maps the verified ID-token claims
// into an Identity. Azure AD puts the sign-in address in preferred_username.
func (p *MicrosoftProvider) Exchange(ctx context.Context, code string) (*Result, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: 10 * time.Second})

	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, ErrExchangeFailed
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrExchangeFailed
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, ErrExchangeFailed
	}

	var claims struct {
		PreferredUsername string `json:"preferred_username"`
		Name              string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrExchangeFailed
	}

	return &Result{
		Token: tokenMap(tok),
		Identity: Identity{
			Email: claims.PreferredUsername,
			Name:  claims.Name,
		},
	}, nil
}

// Compile-time interface assertion
var _ Provider = (*MicrosoftProvider)(nil)
