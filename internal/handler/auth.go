package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/middleware"
	"github.com/iliyamo/oob-marketplace/internal/service"
)

// AuthHandler serves the JSON auth endpoints under /auth.
type AuthHandler struct {
	Auth *service.AuthService
	Log  *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Log: logger}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type logoutReq struct {
	All bool `json:"all"`
}

// Register creates a password account and returns it with 201. No session
// is opened; the client logs in next.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, service.RegisterInput{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Login verifies credentials, sets the refresh cookie and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	iss, err := h.Auth.Login(ctx, service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return h.issued(c, iss)
}

// Refresh rotates the refresh token read from the cookie (or, for clients
// without cookies, from a JSON body) and returns a new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := ""
	if ck, err := c.Cookie(h.Auth.CookieAttrs().Name); err == nil {
		raw = ck.Value
	}
	if raw == "" {
		var req refreshReq
		if err := c.Bind(&req); err == nil {
			raw = strings.TrimSpace(req.RefreshToken)
		}
	}
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	iss, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return h.issued(c, iss)
}

// Logout revokes the session of the refresh cookie and clears it. With
// {"all":true} every session of the Bearer user is revoked instead.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	_ = c.Bind(&req) // body is optional

	ctx, cancel := withTimeout(c)
	defer cancel()

	if req.All {
		uid, ok := middleware.CurrentUserID(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		if err := h.Auth.LogoutAll(ctx, uid); err != nil {
			return writeError(c, h.Log, err)
		}
		c.SetCookie(h.Auth.CookieAttrs().Expired())
		return c.NoContent(http.StatusNoContent)
	}

	ck, err := c.Cookie(h.Auth.CookieAttrs().Name)
	if err != nil || ck.Value == "" {
		return c.NoContent(http.StatusNoContent)
	}
	if err := h.Auth.LogoutCurrent(ctx, ck.Value); err != nil {
		return writeError(c, h.Log, err)
	}
	c.SetCookie(h.Auth.CookieAttrs().Expired())
	return c.NoContent(http.StatusNoContent)
}

// Me returns the Bearer user.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

func (h *AuthHandler) issued(c echo.Context, iss service.Issued) error {
	c.SetCookie(iss.Cookie.Cookie(iss.RefreshToken))
	return c.JSON(http.StatusOK, tokenResp{
		AccessToken: iss.AccessToken.Token,
		TokenType:   "bearer",
		ExpiresAt:   iss.AccessToken.Exp,
	})
}
