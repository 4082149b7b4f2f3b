package middleware

// identity.go holds the request-scoped identity helpers shared by the bearer
// middleware, the UI guard, the role check and the rate limiter. Identity is
// resolved at most once per request and memoised on the echo context.

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/model"
)

const (
	ctxUser     = "user"
	ctxUserID   = "user_id"
	ctxResolved = "identity_resolved"
)

// IdentityResolver turns a refresh token into its owner without rotating it.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, raw string) (model.User, error)
}

// SetCurrentUser stores the authenticated user on the request context.
func SetCurrentUser(c echo.Context, u model.User) {
	c.Set(ctxUser, u)
	c.Set(ctxUserID, u.ID)
	c.Set(ctxResolved, true)
}

// CurrentUser returns the user attached by BearerAuth or UIGuard.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ctxUser).(model.User)
	return u, ok && u.ID != 0
}

// CurrentUserID returns the id of the authenticated user, if any.
func CurrentUserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// resolveOnce looks the refresh cookie up through r the first time it is
// called for a request and caches the outcome, including "anonymous".
func resolveOnce(c echo.Context, r IdentityResolver, cookieName string) (model.User, bool) {
	if done, _ := c.Get(ctxResolved).(bool); done {
		return CurrentUser(c)
	}
	c.Set(ctxResolved, true)
	ck, err := c.Cookie(cookieName)
	if err != nil || ck.Value == "" {
		return model.User{}, false
	}
	u, err := r.ResolveIdentity(c.Request().Context(), ck.Value)
	if err != nil {
		return model.User{}, false
	}
	SetCurrentUser(c, u)
	return u, true
}
