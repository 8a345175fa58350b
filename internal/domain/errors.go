package domain

import "errors"

// Error taxonomy for the OAuth flow. All are terminal for the current
// request; nothing is retried internally.
var (
	// ErrInvalidShopDomain rejects a malformed tenant identifier before
	// any lookup or external call.
	ErrInvalidShopDomain = errors.New("invalid shop domain")

	// ErrInvalidAccessMode rejects an access mode that is neither offline
	// nor online.
	ErrInvalidAccessMode = errors.New("invalid access mode")

	// ErrInvalidHMAC rejects a callback whose signature does not match
	// the shared secret.
	ErrInvalidHMAC = errors.New("invalid hmac signature")

	// ErrStateMismatch rejects a callback whose state nonce is unknown,
	// expired, or bound to a different shop.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrInvalidSessionToken rejects an embedded session token that fails
	// local verification.
	ErrInvalidSessionToken = errors.New("invalid session token")

	// ErrNotInstalled signals that a shop has no stored credential.
	ErrNotInstalled = errors.New("shop not installed")

	// ErrTokenExchange signals a transport or provider-side failure while
	// exchanging a grant for an access token. Nothing was persisted.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrStorage signals that the credential store was unavailable or
	// violated a constraint.
	ErrStorage = errors.New("storage failure")
)
