package utils

import "crypto/subtle"

// NewCSRFPair returns the form token and cookie value for the double-submit
// pattern. Both values are the same signed nonce.
func NewCSRFPair(secret string) (formToken, cookieValue string, err error) {
	tok, err := newSignedNonce([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return tok, tok, nil
}

// VerifyCSRF reports whether a form token and cookie value were produced
// together by NewCSRFPair under secret: both present, equal, and carrying a
// valid signature.
func VerifyCSRF(secret, formToken, cookieValue string) bool {
	if formToken == "" || cookieValue == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(formToken), []byte(cookieValue)) != 1 {
		return false
	}
	return verifySignedNonce([]byte(secret), formToken)
}
