package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/oob-marketplace/internal/model"
)

// UserRepo persists users in MySQL.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,name,avatar_url,role,created_at,updated_at"

// Create inserts a user and returns it with its generated id. An empty
// PasswordHash is stored as NULL (OAuth-only account).
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	u.Email = model.NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = model.RoleBuyer
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, avatar_url, role) VALUES (?,?,?,?,?)",
		u.Email, nullString(u.PasswordHash), u.Name, nullString(u.AvatarURL), string(u.Role))
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.FindByID(ctx, uint64(id))
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		model.NormalizeEmail(email))
	return scanUser(row)
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// UpdateProfile replaces the display name and avatar synced from a provider.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, avatarURL string) error {
	return r.execOne(ctx,
		"UPDATE users SET name=?, avatar_url=? WHERE id=?",
		name, nullString(avatarURL), id)
}

// SetPassword stores a new bcrypt hash for the user.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, hash string) error {
	return r.execOne(ctx, "UPDATE users SET password_hash=? WHERE id=?", nullString(hash), id)
}

// SetRole changes the user's role.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role model.Role) error {
	return r.execOne(ctx, "UPDATE users SET role=? WHERE id=?", string(role), id)
}

// execOne runs an UPDATE by id and maps a missing row to ErrNotFound. MySQL
// reports zero affected rows when the values are unchanged, so a follow-up
// existence check distinguishes the two.
func (r *UserRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	id := args[len(args)-1]
	var one int
	err = r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u      model.User
		pass   sql.NullString
		avatar sql.NullString
		role   string
	)
	err := row.Scan(&u.ID, &u.Email, &pass, &u.Name, &avatar, &role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.PasswordHash = pass.String
	u.AvatarURL = avatar.String
	u.Role = model.Role(role)
	return u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
