package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// signedNonceBytes is the size of the random nonce in CSRF and state tokens.
const signedNonceBytes = 32

// newSignedNonce returns "b64url(nonce).b64url(HMAC-SHA256(secret, nonce))".
func newSignedNonce(secret []byte) (string, error) {
	nonce, err := randomURLSafe(signedNonceBytes)
	if err != nil {
		return "", err
	}
	raw, _ := base64.RawURLEncoding.DecodeString(nonce)
	return nonce + "." + sign(secret, raw), nil
}

// verifySignedNonce recomputes the HMAC over the decoded nonce and compares
// it with the presented signature in constant time.
func verifySignedNonce(secret []byte, token string) bool {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok || payload == "" || sig == "" {
		return false
	}
	nonce, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return false
	}
	// Reject non-canonical encodings so a mutated payload cannot decode to
	// the same nonce.
	if base64.RawURLEncoding.EncodeToString(nonce) != payload {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(sign(secret, nonce)))
}

func sign(secret, value []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(value)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
