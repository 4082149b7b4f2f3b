package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is the single outcome of every access token verification
// failure. Bad signatures, expired tokens and malformed subjects are not
// distinguished so callers cannot be used as an oracle.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string. Exp stores the expiration
// timestamp as a time.Time. Access tokens are short‑lived and sent in the
// Authorization header when calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenCodec signs and verifies stateless access tokens with a server-wide
// symmetric secret. It is safe for concurrent use; all fields are read-only
// after construction.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec builds a codec for the named HMAC algorithm (HS256, HS384 or
// HS512). Any other algorithm is rejected so a misconfiguration fails at
// startup rather than on the first request.
func NewTokenCodec(secret, algorithm string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}
	var method jwt.SigningMethod
	switch algorithm {
	case "HS256", "":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	return &TokenCodec{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the configured access token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// NewAccessToken builds and signs a JWT for a user. The token carries the
// standard claims subject (sub, the decimal user id), issued at (iat) and
// expiration (exp).
func (c *TokenCodec) NewAccessToken(userID uint64) (AccessToken, error) {
	now := c.now().UTC()
	exp := now.Add(c.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(c.method, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature, algorithm and expiry of raw and
// returns the user id from its subject. Every failure returns ErrInvalidToken.
func (c *TokenCodec) ParseAccessToken(raw string) (uint64, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !tok.Valid {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
