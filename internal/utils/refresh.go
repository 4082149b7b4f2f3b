package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// refreshSecretBytes is the entropy of the credential half of a refresh token.
const refreshSecretBytes = 32 // 256 bits

// ErrRefreshFormat is returned when a refresh token is not "<id>.<secret>".
var ErrRefreshFormat = errors.New("invalid refresh token format")

// NewRefreshToken returns the wire form "<sessionID>.<secret>" together with
// the secret alone. The session id is a routing hint; only the secret is a
// credential and only its hash is persisted.
func NewRefreshToken(sessionID uint64) (raw, secret string, err error) {
	secret, err = randomURLSafe(refreshSecretBytes)
	if err != nil {
		return "", "", err
	}
	return strconv.FormatUint(sessionID, 10) + "." + secret, secret, nil
}

// ParseRefreshToken splits a refresh token into its session id and secret.
// It fails unless there are exactly two dot-separated parts, the id is a
// positive integer and the secret is not empty.
func ParseRefreshToken(raw string) (uint64, string, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", ErrRefreshFormat
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || id == 0 {
		return 0, "", ErrRefreshFormat
	}
	return id, parts[1], nil
}

// randomURLSafe returns n bytes of crypto/rand data, base64url encoded
// without padding.
func randomURLSafe(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
