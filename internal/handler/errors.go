package handler // handler contains the HTTP handlers for the JSON API and the HTML pages

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/service"
)

// requestTimeout bounds the store work done for a single request.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// writeError maps service errors onto status codes and client-safe
// messages. Session failures all collapse to one 401; the detail only
// reaches the log.
func writeError(c echo.Context, log *slog.Logger, err error) error {
	status, msg := classify(err)
	switch {
	case status >= 500:
		log.Error("request failed", "path", c.Path(), "err", err)
	case status == http.StatusUnauthorized:
		log.Debug("unauthorized", "path", c.Path(), "reason", err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case service.IsUnauthorized(err):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrInvalidPKCE):
		return http.StatusBadRequest, "invalid state or pkce"
	case service.IsOAuthFailure(err):
		return http.StatusUnauthorized, "oauth failed"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	}
	return http.StatusInternalServerError, "internal error"
}
