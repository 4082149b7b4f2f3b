package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/utils"
)

// UserLookup loads the user named by a token subject.
type UserLookup interface {
	UserByID(ctx context.Context, id uint64) (model.User, error)
}

// BearerAuth returns an Echo middleware that validates a Bearer access token
// and attaches its user to the request context. The token only carries the
// subject, so the current role is read from the store on each request and a
// deleted user is rejected immediately. Handlers read the user with
// CurrentUser.
func BearerAuth(codec *utils.TokenCodec, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			id, err := codec.ParseAccessToken(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			u, err := users.UserByID(c.Request().Context(), id)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			SetCurrentUser(c, u)
			return next(c)
		}
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is matched case-insensitively.
func bearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// OptionalBearer attaches the user of a valid Bearer token when one is
// present and otherwise lets the request through anonymously. Used where
// only part of an endpoint requires authentication.
func OptionalBearer(codec *utils.TokenCodec, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c); ok {
				if id, err := codec.ParseAccessToken(raw); err == nil {
					if u, err := users.UserByID(c.Request().Context(), id); err == nil {
						SetCurrentUser(c, u)
					}
				}
			}
			return next(c)
		}
	}
}
