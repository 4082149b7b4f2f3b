package model

import "time"

// Session models an entry in the `sessions` table. Each session is one
// refresh-token lineage: the id is embedded literally in the refresh token
// and survives rotations, while the hash is replaced on every refresh. The
// raw secret is never stored.
//
// Fields:
//
//	ID               – primary key, embedded in the refresh token.
//	UserID           – owner of the session.
//	RefreshTokenHash – bcrypt hash of the current secret; empty while the
//	                   session is still a placeholder.
//	CreatedAt        – timestamp of creation.
//	ExpiresAt        – expiry, moved forward on each rotation.
//	RevokedAt        – when the session was revoked (nil while usable).
//	UserAgent        – client user agent at login.
//	IP               – normalized client IP at login (may be empty).
type Session struct {
	ID               uint64     // sessions.id
	UserID           uint64     // sessions.user_id
	RefreshTokenHash string     // sessions.refresh_token_hash (nullable)
	CreatedAt        time.Time  // sessions.created_at
	ExpiresAt        time.Time  // sessions.expires_at
	RevokedAt        *time.Time // sessions.revoked_at (nullable)
	UserAgent        string     // sessions.user_agent
	IP               string     // sessions.ip (nullable)
}

// Revoked reports whether the session has been revoked. Revocation is terminal.
func (s Session) Revoked() bool { return s.RevokedAt != nil }

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

// Placeholder reports whether no secret has been attached yet.
func (s Session) Placeholder() bool { return s.RefreshTokenHash == "" }
