package service

import (
	"context"
	"time"

	"github.com/iliyamo/oob-marketplace/internal/model"
)

// UserStore is the persistence contract for users. Lookups return
// repository.ErrNotFound for a missing row and Create returns
// repository.ErrEmailExists when the unique index rejects the email.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id uint64) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	UpdateProfile(ctx context.Context, id uint64, name, avatarURL string) error
}

// SessionStore is the persistence contract for refresh sessions.
//
// Rotate must be a single conditional update that succeeds only while the
// stored hash equals oldHash and the session is neither revoked nor expired;
// otherwise it returns repository.ErrStaleSession.
type SessionStore interface {
	CreatePlaceholder(ctx context.Context, userID uint64, expiresAt time.Time, userAgent, ip string) (uint64, error)
	AttachSecretHash(ctx context.Context, id uint64, hash string) error
	FindByID(ctx context.Context, id uint64) (model.Session, error)
	Rotate(ctx context.Context, id uint64, oldHash, newHash string, newExpires, now time.Time) error
	Revoke(ctx context.Context, id uint64) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
	ListActiveForUser(ctx context.Context, userID uint64, now time.Time) ([]model.Session, error)
}

// ProductStore is the persistence contract for listings.
type ProductStore interface {
	List(ctx context.Context, limit, offset int) ([]model.Product, error)
	Get(ctx context.Context, id uint64) (model.Product, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) (model.Product, error)
	Delete(ctx context.Context, id uint64) error
	Stats(ctx context.Context, sellerID uint64) (model.ProductStats, error)
}
