package utils

import "crypto/subtle"

// NewState returns a signed single-purpose nonce for the OAuth state parameter.
func NewState(secret string) (string, error) {
	return newSignedNonce([]byte(secret))
}

// VerifyState checks an OAuth callback: the query parameter and the cookie
// must both be present and identical, and the value must carry a valid
// signature.
func VerifyState(secret, param, cookie string) bool {
	if param == "" || cookie == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(param), []byte(cookie)) != 1 {
		return false
	}
	return verifySignedNonce([]byte(secret), param)
}
