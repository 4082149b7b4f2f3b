package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/middleware"
)

// ListSessions returns the sessions of the Bearer user that can still be
// refreshed.
func (h *AuthHandler) ListSessions(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	items, err := h.Auth.ListSessions(ctx, u.ID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]sessionResp, 0, len(items))
	for _, s := range items {
		out = append(out, toSessionResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

// RevokeSession revokes one session owned by the Bearer user (admins may
// revoke any).
func (h *AuthHandler) RevokeSession(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Auth.RevokeSession(ctx, u, id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
