// Package auth implements OAuth2/OIDC sign-in against third-party identity
// providers behind a minimal provider-agnostic interface.
package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// Provider identifiers used for routing, storage and logging.
const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
)

// Identity is the authenticated end user as asserted by a provider.
// Name is optional and empty when the provider does not supply one.
type Identity struct {
	Email string
	Name  string
}

// Result carries the outcome of a successful authorization-code exchange.
// Token holds the raw provider token material; it is handed to the caller
// untouched and never persisted.
type Result struct {
	Token    map[string]any
	Identity Identity
}

// Provider abstracts provider-specific OAuth behavior. Implementations
// encapsulate all protocol details (oauth2.Config, token exchange, profile
// endpoints) and expose only the two primitives the login flow needs.
type Provider interface {
	// Name returns the stable provider identifier, e.g. "google".
	Name() string

	// AuthURL builds the provider authorization URL embedding the given
	// anti-forgery state. It performs no network I/O.
	AuthURL(state string) string

	// Exchange trades the one-time authorization code for tokens, retrieves
	// the authenticated user's profile and returns a populated Result.
	// Rejected codes, provider-reported errors and failed profile fetches
	// all surface as ErrExchangeFailed.
	Exchange(ctx context.Context, code string) (*Result, error)
}

// tokenMap flattens an oauth2.Token into the opaque map carried on Result.
func tokenMap(tok *oauth2.Token) map[string]any {
	m := map[string]any{
		"access_token": tok.AccessToken,
		"token_type":   tok.TokenType,
		"expiry":       tok.Expiry,
	}
	if tok.RefreshToken != "" {
		m["refresh_token"] = tok.RefreshToken
	}
	if id, ok := tok.Extra("id_token").(string); ok && id != "" {
		m["id_token"] = id
	}
	return m
}
