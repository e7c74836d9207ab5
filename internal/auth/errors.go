package auth

import "errors"

var (
	// ErrUnknownProvider is returned by the registry for provider names it
	// has no configuration for.
	ErrUnknownProvider = errors.New("unknown identity provider")

	// ErrExchangeFailed tags any failure between receiving the authorization
	// code and producing a verified identity: rejected code, provider error
	// indicator, failed profile fetch.
	ErrExchangeFailed = errors.New("authorization code exchange failed")
)
