package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/service"
)

// RequireRole returns a middleware function that enforces that the
// authenticated user has one of the specified roles. It assumes BearerAuth
// ran first; without a user the request is answered with 401, with the
// wrong role with 403 Forbidden.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if err := service.Authorize(u, roles...); err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
