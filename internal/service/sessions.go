package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/queue"
	"github.com/iliyamo/oob-marketplace/internal/repository"
)

// ListSessions returns the caller's active sessions, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID uint64) ([]model.Session, error) {
	out, err := s.sessions.ListActiveForUser(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// RevokeSession revokes one session by id on behalf of actor, who must own
// it or be an admin. A session owned by someone else is reported as
// ErrNotFound so session ids cannot be enumerated.
func (s *AuthService) RevokeSession(ctx context.Context, actor model.User, sessionID uint64) error {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load session: %w", err)
	}
	if err := AuthorizeOwner(actor, sess.UserID); err != nil {
		return ErrNotFound
	}
	if sess.Revoked() {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.publish(ctx, queue.AuthEvent{Type: queue.EventSessionRevoked, UserID: sess.UserID, SessionID: sessionID})
	return nil
}

// UserByID loads a user for the bearer middleware.
func (s *AuthService) UserByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	return u, nil
}
