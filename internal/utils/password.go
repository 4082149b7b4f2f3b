package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrSecretTooLong is returned when the input exceeds bcrypt's 72-byte limit.
var ErrSecretTooLong = bcrypt.ErrPasswordTooLong

// HashPassword returns bcrypt hash using the given cost. Every call draws a
// fresh salt, so hashing the same password twice yields different strings.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrSecretTooLong
		}
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password. A malformed
// or empty hash yields false.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashRefreshSecret hashes the secret half of a refresh token. It uses the
// same primitive as HashPassword but is kept separate so session hashes and
// password hashes are never compared against each other.
func HashRefreshSecret(secret string, cost int) (string, error) {
	return HashPassword(secret, cost)
}

// VerifyRefreshSecret checks a refresh secret against a session hash.
func VerifyRefreshSecret(hash, secret string) bool {
	return VerifyPassword(hash, secret)
}
