package router // package router defines how HTTP routes are registered

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/handler"
	"github.com/iliyamo/oob-marketplace/internal/middleware"
	"github.com/iliyamo/oob-marketplace/internal/utils"
)

// Deps carries the handlers and middleware the routes are built from.
type Deps struct {
	Auth      *handler.AuthHandler
	OAuth     *handler.OAuthHandler
	Products  *handler.ProductHandler
	UI        *handler.UIHandler
	Readiness handler.Readiness

	Codec     *utils.TokenCodec
	Users     middleware.UserLookup
	Guard     echo.MiddlewareFunc       // UI guard, installed globally
	RateLimit echo.MiddlewareFunc       // applied to login and register
	Cache     *middleware.ResponseCache // nil disables caching
}

// RegisterRoutes registers routes that do not require authentication:
// liveness at /health and a readiness probe at /healthz.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/health", handler.Health)
	e.GET("/healthz", d.Readiness.Check)
}

// RegisterAuth registers the JSON auth API under /auth. Credential
// endpoints sit behind the rate limiter; session management requires a
// Bearer access token.
func RegisterAuth(e *echo.Echo, d Deps) {
	a := d.Auth
	bearer := middleware.BearerAuth(d.Codec, d.Users)

	g := e.Group("/auth")
	g.POST("/register", a.Register, d.RateLimit)
	g.POST("/login", a.Login, d.RateLimit)
	g.POST("/refresh", a.Refresh)
	// Logout of the current session needs only the refresh cookie; {"all":true}
	// is checked against the optional Bearer user inside the handler.
	g.POST("/logout", a.Logout, middleware.OptionalBearer(d.Codec, d.Users))

	g.GET("/me", a.Me, bearer)
	g.GET("/sessions", a.ListSessions, bearer)
	g.POST("/sessions/:id/revoke", a.RevokeSession, bearer)
}

// RegisterOAuth registers the provider redirect endpoints under /oauth.
func RegisterOAuth(e *echo.Echo, d Deps) {
	o := d.OAuth
	g := e.Group("/oauth")
	g.GET("/google/start", o.GoogleStart)
	g.GET("/google/callback", o.GoogleCallback)
	g.GET("/twitter/start", o.TwitterStart)
	g.GET("/twitter/callback", o.TwitterCallback)
}

// Register wires every route group.
func Register(e *echo.Echo, d Deps) {
	if d.RateLimit == nil {
		d.RateLimit = passThrough
	}
	if d.Guard != nil {
		e.Use(d.Guard)
	}
	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterOAuth(e, d)
	RegisterProducts(e, d)
	RegisterUI(e, d)
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
