// Package service holds the authentication engine, the OAuth login flows
// and the thin product service. Services depend on store interfaces and
// receive every resource handle through their constructors.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/queue"
	"github.com/iliyamo/oob-marketplace/internal/repository"
	"github.com/iliyamo/oob-marketplace/internal/utils"
)

// CookieAttrs describes how the refresh cookie must be set for an issued
// session.
type CookieAttrs struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int // seconds
}

// Cookie builds the refresh cookie carrying value.
func (a CookieAttrs) Cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     a.Name,
		Value:    value,
		Path:     "/",
		Domain:   a.Domain,
		MaxAge:   a.MaxAge,
		Secure:   a.Secure,
		HttpOnly: true,
		SameSite: a.SameSite,
	}
}

// Expired builds a cookie that clears the refresh cookie in the browser.
func (a CookieAttrs) Expired() *http.Cookie {
	c := a.Cookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

// Issued is the result of a login, refresh or OAuth callback.
type Issued struct {
	User           model.User
	SessionID      uint64
	AccessToken    utils.AccessToken
	RefreshToken   string
	RefreshExpires time.Time
	Cookie         CookieAttrs
}

// AuthOptions carries the tunables of the auth engine.
type AuthOptions struct {
	RefreshTTL time.Duration
	BcryptCost int
	Cookie     CookieAttrs // MaxAge is derived from RefreshTTL
}

// RegisterInput is the payload of a password registration.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput is the payload of a password login.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IP        string
}

// AuthService implements registration, password login and the refresh
// session lifecycle. It is constructed once and shared by all requests.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	codec    *utils.TokenCodec
	events   queue.Publisher
	log      *slog.Logger

	refreshTTL time.Duration
	cost       int
	cookie     CookieAttrs
	dummyHash  string
	now        func() time.Time
}

// NewAuthService wires the engine. A nil publisher disables audit events.
func NewAuthService(users UserStore, sessions SessionStore, codec *utils.TokenCodec, opts AuthOptions, events queue.Publisher, logger *slog.Logger) (*AuthService, error) {
	if opts.RefreshTTL <= 0 {
		return nil, errors.New("refresh ttl must be positive")
	}
	if events == nil {
		events = queue.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	// Compared against when the email is unknown so a failed login costs the
	// same bcrypt work whether or not the account exists.
	dummy, err := utils.HashPassword("not-a-real-password", opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	cookie := opts.Cookie
	cookie.MaxAge = int(opts.RefreshTTL / time.Second)
	return &AuthService{
		users:      users,
		sessions:   sessions,
		codec:      codec,
		events:     events,
		log:        logger,
		refreshTTL: opts.RefreshTTL,
		cost:       opts.BcryptCost,
		cookie:     cookie,
		dummyHash:  dummy,
		now:        time.Now,
	}, nil
}

// CookieAttrs returns the refresh cookie attributes, used to clear the
// cookie on logout.
func (s *AuthService) CookieAttrs() CookieAttrs { return s.cookie }

// Register creates a password account with role buyer.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	email := model.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" || !strings.Contains(email, "@") {
		return model.User{}, ErrInvalidInput
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return model.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		if errors.Is(err, utils.ErrSecretTooLong) {
			return model.User{}, ErrInvalidInput
		}
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.Create(ctx, model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Role:         model.RoleBuyer,
	})
	if err != nil {
		// Lost a race against a concurrent registration.
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	s.publish(ctx, queue.AuthEvent{Type: queue.EventUserRegistered, UserID: u.ID, Provider: "password"})
	return u, nil
}

// Login verifies a password and opens a new session. Unknown email, an
// OAuth-only account and a wrong password all yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Issued, error) {
	u, err := s.users.FindByEmail(ctx, model.NormalizeEmail(in.Email))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return Issued{}, fmt.Errorf("lookup user: %w", err)
		}
		utils.VerifyPassword(s.dummyHash, in.Password)
		return Issued{}, ErrInvalidCredentials
	}
	if !u.HasPassword() {
		utils.VerifyPassword(s.dummyHash, in.Password)
		return Issued{}, ErrInvalidCredentials
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return Issued{}, ErrInvalidCredentials
	}

	iss, err := s.IssueSession(ctx, u, in.UserAgent, in.IP)
	if err != nil {
		return Issued{}, err
	}
	s.publish(ctx, queue.AuthEvent{
		Type: queue.EventUserLogin, UserID: u.ID, SessionID: iss.SessionID,
		Provider: "password", IP: utils.NormalizeIP(in.IP), UserAgent: in.UserAgent,
	})
	return iss, nil
}

// IssueSession runs the two-phase session creation for an authenticated
// user: insert a placeholder to obtain the id, generate the refresh token
// embedding that id, attach the hash of its secret, and sign an access
// token. Password and OAuth logins share this sequence.
func (s *AuthService) IssueSession(ctx context.Context, u model.User, userAgent, ip string) (Issued, error) {
	now := s.now().UTC()
	expires := now.Add(s.refreshTTL)

	id, err := s.sessions.CreatePlaceholder(ctx, u.ID, expires, userAgent, utils.NormalizeIP(ip))
	if err != nil {
		return Issued{}, fmt.Errorf("create session: %w", err)
	}
	raw, secret, err := utils.NewRefreshToken(id)
	if err != nil {
		return Issued{}, fmt.Errorf("generate refresh token: %w", err)
	}
	hash, err := utils.HashRefreshSecret(secret, s.cost)
	if err != nil {
		return Issued{}, fmt.Errorf("hash refresh secret: %w", err)
	}
	if err := s.sessions.AttachSecretHash(ctx, id, hash); err != nil {
		return Issued{}, fmt.Errorf("attach session secret: %w", err)
	}
	access, err := s.codec.NewAccessToken(u.ID)
	if err != nil {
		return Issued{}, fmt.Errorf("sign access token: %w", err)
	}
	return Issued{
		User:           u,
		SessionID:      id,
		AccessToken:    access,
		RefreshToken:   raw,
		RefreshExpires: expires,
		Cookie:         s.cookie,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token and a
// rotated refresh token. The presented token is invalid afterwards; when two
// requests race with the same token exactly one of them wins.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Issued, error) {
	sess, err := s.validate(ctx, raw)
	if err != nil {
		return Issued{}, err
	}
	u, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Issued{}, ErrInvalidSession
		}
		return Issued{}, fmt.Errorf("lookup user: %w", err)
	}

	newRaw, newSecret, err := utils.NewRefreshToken(sess.ID)
	if err != nil {
		return Issued{}, fmt.Errorf("generate refresh token: %w", err)
	}
	newHash, err := utils.HashRefreshSecret(newSecret, s.cost)
	if err != nil {
		return Issued{}, fmt.Errorf("hash refresh secret: %w", err)
	}
	now := s.now().UTC()
	expires := now.Add(s.refreshTTL)
	if err := s.sessions.Rotate(ctx, sess.ID, sess.RefreshTokenHash, newHash, expires, now); err != nil {
		if errors.Is(err, repository.ErrStaleSession) {
			return Issued{}, ErrInvalidToken
		}
		return Issued{}, fmt.Errorf("rotate session: %w", err)
	}
	access, err := s.codec.NewAccessToken(u.ID)
	if err != nil {
		return Issued{}, fmt.Errorf("sign access token: %w", err)
	}
	s.publish(ctx, queue.AuthEvent{Type: queue.EventSessionRefreshed, UserID: u.ID, SessionID: sess.ID})
	return Issued{
		User:           u,
		SessionID:      sess.ID,
		AccessToken:    access,
		RefreshToken:   newRaw,
		RefreshExpires: expires,
		Cookie:         s.cookie,
	}, nil
}

// ResolveIdentity returns the owner of a valid refresh token without
// rotating it. It is used by the UI guard on every HTML request.
func (s *AuthService) ResolveIdentity(ctx context.Context, raw string) (model.User, error) {
	sess, err := s.validate(ctx, raw)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrInvalidSession
		}
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// LogoutCurrent revokes the session behind raw. It is idempotent: a
// malformed, unknown or already revoked token is a no-op. The secret must
// match so that knowing a session id alone cannot end someone's session.
func (s *AuthService) LogoutCurrent(ctx context.Context, raw string) error {
	id, secret, err := utils.ParseRefreshToken(raw)
	if err != nil {
		return nil
	}
	sess, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load session: %w", err)
	}
	if sess.Revoked() || !utils.VerifyRefreshSecret(sess.RefreshTokenHash, secret) {
		return nil
	}
	if err := s.sessions.Revoke(ctx, id); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.publish(ctx, queue.AuthEvent{Type: queue.EventSessionRevoked, UserID: sess.UserID, SessionID: id})
	return nil
}

// LogoutAll revokes every session of userID. Sessions of other users are
// untouched.
func (s *AuthService) LogoutAll(ctx context.Context, userID uint64) error {
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.publish(ctx, queue.AuthEvent{Type: queue.EventSessionsRevokeAll, UserID: userID})
	return nil
}

// validate performs the checks shared by Refresh and ResolveIdentity, in
// order: wire format, existence, revocation, expiry, secret.
func (s *AuthService) validate(ctx context.Context, raw string) (model.Session, error) {
	id, secret, err := utils.ParseRefreshToken(raw)
	if err != nil {
		return model.Session{}, ErrInvalidSession
	}
	sess, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, ErrInvalidSession
		}
		return model.Session{}, fmt.Errorf("load session: %w", err)
	}
	if sess.Revoked() {
		return model.Session{}, ErrSessionRevoked
	}
	if sess.Expired(s.now().UTC()) {
		return model.Session{}, ErrSessionExpired
	}
	if !utils.VerifyRefreshSecret(sess.RefreshTokenHash, secret) {
		return model.Session{}, ErrInvalidToken
	}
	return sess, nil
}

// publish emits an audit event. Failures are logged and otherwise ignored.
func (s *AuthService) publish(ctx context.Context, ev queue.AuthEvent) {
	ev.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("audit event dropped", "type", ev.Type, "user_id", ev.UserID, "err", err)
	}
}
