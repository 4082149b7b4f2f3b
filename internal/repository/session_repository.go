package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/oob-marketplace/internal/model"
)

// SessionRepo persists refresh sessions (one row per token lineage).
// Sessions are created in two phases: a placeholder row gives the id that is
// embedded in the refresh token, then the hash of the secret is attached.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// CreatePlaceholder inserts a session without a secret hash and returns its id.
func (r *SessionRepo) CreatePlaceholder(ctx context.Context, userID uint64, expiresAt time.Time, userAgent, ip string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (user_id, refresh_token_hash, user_agent, ip, expires_at) VALUES (?,NULL,?,?,?)",
		userID, truncate(userAgent, 512), nullString(ip), expiresAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// AttachSecretHash stores the first secret hash on a placeholder. It refuses
// to overwrite an existing hash.
func (r *SessionRepo) AttachSecretHash(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET refresh_token_hash=? WHERE id=? AND refresh_token_hash IS NULL",
		hash, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrStaleSession
	}
	return nil
}

// FindByID loads a session by id.
func (r *SessionRepo) FindByID(ctx context.Context, id uint64) (model.Session, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,refresh_token_hash,user_agent,ip,created_at,expires_at,revoked_at FROM sessions WHERE id=? LIMIT 1",
		id)
	return scanSession(row)
}

// Rotate swaps the secret hash and expiry in a single compare-and-set. It only
// succeeds when the row still holds oldHash and is neither revoked nor
// expired at now; otherwise ErrStaleSession is returned and nothing changes.
func (r *SessionRepo) Rotate(ctx context.Context, id uint64, oldHash, newHash string, newExpires, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET refresh_token_hash=?, expires_at=? WHERE id=? AND refresh_token_hash=? AND revoked_at IS NULL AND expires_at > ?",
		newHash, newExpires.UTC(), id, oldHash, now.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleSession
	}
	return nil
}

// Revoke marks one session as revoked. Revoking twice is a no-op.
func (r *SessionRepo) Revoke(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE id=? AND revoked_at IS NULL",
		id)
	return err
}

// RevokeAllForUser revokes all user's active sessions.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// ListActiveForUser returns the user's sessions that are neither revoked nor
// expired at now, newest first.
func (r *SessionRepo) ListActiveForUser(ctx context.Context, userID uint64, now time.Time) ([]model.Session, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,user_id,refresh_token_hash,user_agent,ip,created_at,expires_at,revoked_at
		   FROM sessions
		  WHERE user_id=? AND revoked_at IS NULL AND expires_at > ?
		  ORDER BY created_at DESC, id DESC`,
		userID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row rowScanner) (model.Session, error) {
	var (
		s       model.Session
		hash    sql.NullString
		ip      sql.NullString
		revoked sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &hash, &s.UserAgent, &ip, &s.CreatedAt, &s.ExpiresAt, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	s.RefreshTokenHash = hash.String
	s.IP = ip.String
	if revoked.Valid {
		t := revoked.Time
		s.RevokedAt = &t
	}
	return s, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
