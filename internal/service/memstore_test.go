package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/queue"
	"github.com/iliyamo/oob-marketplace/internal/repository"
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User

	// createErr, when set, is returned by Create once.
	createErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint64]model.User{}}
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == model.NormalizeEmail(email) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, u model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.createErr; err != nil {
		m.createErr = nil
		return model.User{}, err
	}
	for _, x := range m.byID {
		if x.Email == u.Email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) SetPassword(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	m.byID[id] = u
	return nil
}

func (m *memUsers) SetRole(_ context.Context, id uint64, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	m.byID[id] = u
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id uint64, name, avatarURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Name, u.AvatarURL = name, avatarURL
	m.byID[id] = u
	return nil
}

// put stores u directly, bypassing uniqueness checks.
func (m *memUsers) put(u model.User) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	m.byID[u.ID] = u
	return u
}

// memSessions is an in-memory SessionStore whose Rotate is atomic under mu.
type memSessions struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byID: map[uint64]model.Session{}}
}

func (m *memSessions) CreatePlaceholder(_ context.Context, userID uint64, expiresAt time.Time, userAgent, ip string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.byID[m.nextID] = model.Session{
		ID: m.nextID, UserID: userID, ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(), UserAgent: userAgent, IP: ip,
	}
	return m.nextID, nil
}

func (m *memSessions) AttachSecretHash(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok || s.RefreshTokenHash != "" {
		return repository.ErrStaleSession
	}
	s.RefreshTokenHash = hash
	m.byID[id] = s
	return nil
}

func (m *memSessions) FindByID(_ context.Context, id uint64) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return model.Session{}, repository.ErrNotFound
	}
	return s, nil
}

func (m *memSessions) Rotate(_ context.Context, id uint64, oldHash, newHash string, newExpires, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok || s.RefreshTokenHash != oldHash || s.Revoked() || s.Expired(now) {
		return repository.ErrStaleSession
	}
	s.RefreshTokenHash = newHash
	s.ExpiresAt = newExpires
	m.byID[id] = s
	return nil
}

func (m *memSessions) Revoke(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if ok && s.RevokedAt == nil {
		now := time.Now().UTC()
		s.RevokedAt = &now
		m.byID[id] = s
	}
	return nil
}

func (m *memSessions) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for id, s := range m.byID {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
			m.byID[id] = s
		}
	}
	return nil
}

func (m *memSessions) ListActiveForUser(_ context.Context, userID uint64, now time.Time) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Session
	for _, s := range m.byID {
		if s.UserID == userID && !s.Revoked() && !s.Expired(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// recorder captures published audit events.
type recorder struct {
	mu     sync.Mutex
	events []queue.AuthEvent
}

func (r *recorder) Publish(_ context.Context, ev queue.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
