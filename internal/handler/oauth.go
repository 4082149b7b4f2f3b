package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/service"
	"github.com/iliyamo/oob-marketplace/internal/utils"
)

const (
	googleStateCookie  = "oauth_state"
	twitterStateCookie = "oauth_state_tw"
	twitterPKCECookie  = "oauth_tw_pkce"
	oauthCookieMaxAge  = 300
)

// OAuthHandler serves the provider redirects. A nil provider engine means
// the provider is not configured and its routes answer 404.
type OAuthHandler struct {
	Google      *service.GoogleLogin
	Twitter     *service.TwitterLogin
	Cookie      service.CookieAttrs // refresh cookie; its Secure/SameSite/Domain also apply to the flow cookies
	StateSecret string
	Landing     string // where a successful login lands, default /dashboard
	Log         *slog.Logger
}

// GoogleStart redirects to Google with a fresh signed state.
func (h *OAuthHandler) GoogleStart(c echo.Context) error {
	if h.Google == nil {
		return echo.ErrNotFound
	}
	state, err := utils.NewState(h.StateSecret)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	c.SetCookie(h.flowCookie(googleStateCookie, state))
	return c.Redirect(http.StatusFound, h.Google.BuildAuthorizeURL(state))
}

// GoogleCallback finishes the Google login and lands on the dashboard with
// the refresh cookie set.
func (h *OAuthHandler) GoogleCallback(c echo.Context) error {
	if h.Google == nil {
		return echo.ErrNotFound
	}
	in := h.callbackInput(c, googleStateCookie)
	iss, err := h.Google.Callback(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	c.SetCookie(h.clearCookie(googleStateCookie))
	return h.land(c, iss)
}

// TwitterStart redirects to X with a signed state and an S256 PKCE challenge.
func (h *OAuthHandler) TwitterStart(c echo.Context) error {
	if h.Twitter == nil {
		return echo.ErrNotFound
	}
	state, err := utils.NewState(h.StateSecret)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	pkce := utils.NewPKCE()
	c.SetCookie(h.flowCookie(twitterStateCookie, state))
	c.SetCookie(h.flowCookie(twitterPKCECookie, pkce.Verifier))
	return c.Redirect(http.StatusFound, h.Twitter.BuildAuthorizeURL(state, pkce.Challenge))
}

// TwitterCallback finishes the X login.
func (h *OAuthHandler) TwitterCallback(c echo.Context) error {
	if h.Twitter == nil {
		return echo.ErrNotFound
	}
	in := h.callbackInput(c, twitterStateCookie)
	if ck, err := c.Cookie(twitterPKCECookie); err == nil {
		in.Verifier = ck.Value
	}
	iss, err := h.Twitter.Callback(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	c.SetCookie(h.clearCookie(twitterStateCookie))
	c.SetCookie(h.clearCookie(twitterPKCECookie))
	return h.land(c, iss)
}

func (h *OAuthHandler) callbackInput(c echo.Context, stateCookie string) service.CallbackInput {
	in := service.CallbackInput{
		Code:      c.QueryParam("code"),
		State:     c.QueryParam("state"),
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	}
	if ck, err := c.Cookie(stateCookie); err == nil {
		in.StateCookie = ck.Value
	}
	return in
}

func (h *OAuthHandler) land(c echo.Context, iss service.Issued) error {
	c.SetCookie(iss.Cookie.Cookie(iss.RefreshToken))
	landing := h.Landing
	if landing == "" {
		landing = "/dashboard"
	}
	return c.Redirect(http.StatusSeeOther, landing)
}

func (h *OAuthHandler) flowCookie(name, value string) *http.Cookie {
	ck := h.Cookie.Cookie(value)
	ck.Name = name
	ck.MaxAge = oauthCookieMaxAge
	return ck
}

func (h *OAuthHandler) clearCookie(name string) *http.Cookie {
	ck := h.flowCookie(name, "")
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	return ck
}
