package utils

import (
	"golang.org/x/oauth2"
)

// PKCE is a code_verifier / code_challenge pair (RFC 7636, method S256).
type PKCE struct {
	Verifier  string // kept in a short-lived cookie, sent only at token exchange
	Challenge string // SHA-256 of the verifier, sent on the authorize redirect
}

// NewPKCE draws a fresh verifier and derives its S256 challenge.
func NewPKCE() PKCE {
	v := oauth2.GenerateVerifier()
	return PKCE{Verifier: v, Challenge: oauth2.S256ChallengeFromVerifier(v)}
}

// ValidVerifier reports whether v satisfies the RFC 7636 verifier grammar:
// 43 to 128 characters from the unreserved set.
func ValidVerifier(v string) bool {
	if len(v) < 43 || len(v) > 128 {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == '_', c == '~':
		default:
			return false
		}
	}
	return true
}
