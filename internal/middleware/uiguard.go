package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// UIGuardConfig lists the paths the guard distinguishes. Public paths match
// exactly; protected and skip entries match as prefixes.
type UIGuardConfig struct {
	PublicPaths       []string
	ProtectedPrefixes []string
	SkipPrefixes      []string
	RootRedirect      bool
	RefreshCookie     string
	LandingPath       string // default /dashboard
	LoginPath         string // default /login
}

// UIGuard redirects browser traffic based on the refresh cookie. For every
// path outside the skip prefixes it resolves the user once (see
// CurrentUser) and then:
//
//	"/"                    -> landing when signed in, login otherwise
//	public path            -> allowed; /login and /register bounce signed-in users to landing
//	protected prefix       -> login when anonymous
//	anything else          -> allowed
func UIGuard(cfg UIGuardConfig, resolver IdentityResolver) echo.MiddlewareFunc {
	if cfg.LandingPath == "" {
		cfg.LandingPath = "/dashboard"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	public := make(map[string]bool, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = true
	}
	bounce := map[string]bool{cfg.LoginPath: true, "/register": true}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if path == "" {
				path = "/"
			}
			if hasAnyPrefix(path, cfg.SkipPrefixes) {
				return next(c)
			}

			_, signedIn := resolveOnce(c, resolver, cfg.RefreshCookie)

			if cfg.RootRedirect && path == "/" {
				if signedIn {
					return c.Redirect(http.StatusFound, cfg.LandingPath)
				}
				return c.Redirect(http.StatusFound, cfg.LoginPath)
			}
			if public[path] {
				if signedIn && bounce[path] {
					return c.Redirect(http.StatusFound, cfg.LandingPath)
				}
				return next(c)
			}
			if hasAnyPrefix(path, cfg.ProtectedPrefixes) && !signedIn {
				return c.Redirect(http.StatusFound, cfg.LoginPath)
			}
			return next(c)
		}
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
