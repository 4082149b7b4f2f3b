package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/utils"
)

const (
	// CSRFCookieName is the double-submit cookie.
	CSRFCookieName = "csrf_token"
	// CSRFFormField is the hidden form field carrying the token.
	CSRFFormField = "csrf_token"
	// CSRFHeader is accepted instead of the form field for scripted requests.
	CSRFHeader = "X-CSRF-Token"

	csrfMaxAge = 3600
	ctxCSRF    = "csrf_token"
)

// CSRFConfig controls the CSRF cookie and how a rejected request is
// answered. A nil Failure answers 403.
type CSRFConfig struct {
	Secret   string
	Secure   bool
	SameSite http.SameSite
	Domain   string
	Failure  echo.HandlerFunc
}

// CSRF implements the signed double-submit pattern for HTML routes. Safe
// methods get a fresh token pair (cookie set, form token available through
// CSRFToken). Unsafe methods must echo the cookie value in the form field
// or header, and the value must carry a valid signature; otherwise Failure
// runs instead of the handler.
func CSRF(cfg CSRFConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isSafeMethod(c.Request().Method) {
				if err := IssueCSRF(c, cfg); err != nil {
					return err
				}
				return next(c)
			}

			cookieVal := ""
			if ck, err := c.Cookie(CSRFCookieName); err == nil {
				cookieVal = ck.Value
			}
			submitted := c.Request().Header.Get(CSRFHeader)
			if submitted == "" {
				submitted = c.FormValue(CSRFFormField)
			}
			if !utils.VerifyCSRF(cfg.Secret, submitted, cookieVal) {
				if cfg.Failure != nil {
					return cfg.Failure(c)
				}
				return echo.NewHTTPError(http.StatusForbidden, "invalid csrf token")
			}
			c.Set(ctxCSRF, cookieVal)
			return next(c)
		}
	}
}

// IssueCSRF draws a new token pair, sets the cookie and exposes the form
// token to the handler. Handlers call it directly to rotate the token after
// a successful login or registration.
func IssueCSRF(c echo.Context, cfg CSRFConfig) error {
	form, cookie, err := utils.NewCSRFPair(cfg.Secret)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     CSRFCookieName,
		Value:    cookie,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   csrfMaxAge,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
	c.Set(ctxCSRF, form)
	return nil
}

// CSRFToken returns the form token for the current request.
func CSRFToken(c echo.Context) string {
	s, _ := c.Get(ctxCSRF).(string)
	return s
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
