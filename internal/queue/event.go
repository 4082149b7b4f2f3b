// Package queue defines message payloads exchanged over the message broker
// together with the publisher used by the auth engine and the consumer that
// turns them into an audit log.
package queue

import "time"

// Event types published on the audit queue.
const (
	EventUserRegistered    = "user.registered"
	EventUserLogin         = "user.login"
	EventOAuthLogin        = "oauth.login"
	EventSessionRefreshed  = "session.refreshed"
	EventSessionRevoked    = "session.revoked"
	EventSessionsRevokeAll = "sessions.revoked_all"
)

// AuthEvent is published after a successful authentication state change. It
// carries identifiers only; tokens, secrets and passwords never leave the
// auth engine.
type AuthEvent struct {
	Type       string    `json:"type"`
	UserID     uint64    `json:"user_id"`
	SessionID  uint64    `json:"session_id,omitempty"`
	Provider   string    `json:"provider,omitempty"` // password, google or twitter
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
