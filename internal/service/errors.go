package service

import "errors"

// Errors returned by the auth, OAuth and product services. Handlers map them
// to HTTP status codes; the message of the session family is never shown to
// clients.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidSession = errors.New("invalid session")
	ErrSessionRevoked = errors.New("session revoked")
	ErrSessionExpired = errors.New("session expired")
	ErrInvalidToken   = errors.New("invalid refresh token")

	ErrInvalidState      = errors.New("invalid oauth state")
	ErrInvalidPKCE       = errors.New("invalid pkce verifier")
	ErrOAuthFailed       = errors.New("oauth exchange failed")
	ErrIncompleteProfile = errors.New("incomplete provider profile")
	ErrNoEmail           = errors.New("provider did not return a usable email")

	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
)

// IsUnauthorized reports whether err belongs to the session failure family
// that is answered with a uniform 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidSession) ||
		errors.Is(err, ErrSessionRevoked) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrInvalidToken)
}

// IsOAuthFailure reports whether err is a provider-side login failure.
func IsOAuthFailure(err error) bool {
	return errors.Is(err, ErrOAuthFailed) ||
		errors.Is(err, ErrIncompleteProfile) ||
		errors.Is(err, ErrNoEmail)
}
