package router

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/repository"
)

// store is an in-memory implementation of the user, session and product
// stores, enough to drive the routes end to end.
type store struct {
	mu       sync.Mutex
	users    map[uint64]model.User
	sessions map[uint64]model.Session
	products map[uint64]model.Product
	seq      uint64
}

func newStore() *store {
	return &store{
		users:    map[uint64]model.User{},
		sessions: map[uint64]model.Session{},
		products: map[uint64]model.Product{},
	}
}

func (s *store) next() uint64 { s.seq++; return s.seq }

// users

type userStore struct{ *store }

func (s userStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == model.NormalizeEmail(email) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s userStore) FindByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s userStore) Create(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.users {
		if x.Email == u.Email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	u.ID = s.next()
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s userStore) UpdateProfile(_ context.Context, id uint64, name, avatarURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.Name, u.AvatarURL = name, avatarURL
	s.users[id] = u
	return nil
}

func (s userStore) setRole(id uint64, r model.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.Role = r
	s.users[id] = u
}

// sessions

type sessionStore struct{ *store }

func (s sessionStore) CreatePlaceholder(_ context.Context, userID uint64, expiresAt time.Time, ua, ip string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next()
	s.sessions[id] = model.Session{ID: id, UserID: userID, ExpiresAt: expiresAt, CreatedAt: time.Now().UTC(), UserAgent: ua, IP: ip}
	return id, nil
}

func (s sessionStore) AttachSecretHash(_ context.Context, id uint64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.RefreshTokenHash != "" {
		return repository.ErrStaleSession
	}
	sess.RefreshTokenHash = hash
	s.sessions[id] = sess
	return nil
}

func (s sessionStore) FindByID(_ context.Context, id uint64) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, repository.ErrNotFound
	}
	return sess, nil
}

func (s sessionStore) Rotate(_ context.Context, id uint64, oldHash, newHash string, newExpires, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.RefreshTokenHash != oldHash || sess.Revoked() || sess.Expired(now) {
		return repository.ErrStaleSession
	}
	sess.RefreshTokenHash, sess.ExpiresAt = newHash, newExpires
	s.sessions[id] = sess
	return nil
}

func (s sessionStore) Revoke(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok && sess.RevokedAt == nil {
		now := time.Now().UTC()
		sess.RevokedAt = &now
		s.sessions[id] = sess
	}
	return nil
}

func (s sessionStore) RevokeAllForUser(ctx context.Context, userID uint64) error {
	s.mu.Lock()
	var ids []uint64
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	for _, id := range ids {
		_ = s.Revoke(ctx, id)
	}
	return nil
}

func (s sessionStore) ListActiveForUser(_ context.Context, userID uint64, now time.Time) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Session{}
	for _, sess := range s.sessions {
		if sess.UserID == userID && !sess.Revoked() && !sess.Expired(now) && !sess.Placeholder() {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// products

type productStore struct{ *store }

func (s productStore) List(_ context.Context, limit, offset int) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return []model.Product{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s productStore) Get(_ context.Context, id uint64) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	return p, nil
}

func (s productStore) Create(_ context.Context, p model.Product) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.next()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	s.products[p.ID] = p
	return p, nil
}

func (s productStore) Update(_ context.Context, p model.Product) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return model.Product{}, repository.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = p
	return p, nil
}

func (s productStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s productStore) Stats(_ context.Context, sellerID uint64) (model.ProductStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := model.ProductStats{Total: int64(len(s.products))}
	for _, p := range s.products {
		if p.SellerID == sellerID {
			st.Mine++
		}
	}
	return st, nil
}
