package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/middleware"
)

// RegisterUI registers the server-rendered pages. Each page passes the CSRF
// gate (token issued on GET, verified on POST); the UI guard installed by
// Register has already redirected based on the refresh cookie.
func RegisterUI(e *echo.Echo, d Deps) {
	h := d.UI
	cfg := h.CSRF
	cfg.Failure = h.CSRFFailure
	csrf := middleware.CSRF(cfg)

	e.GET("/", h.Index, csrf)
	e.GET("/login", h.LoginPage, csrf)
	e.POST("/login", h.LoginSubmit, d.RateLimit, csrf)
	e.GET("/register", h.RegisterPage, csrf)
	e.POST("/register", h.RegisterSubmit, d.RateLimit, csrf)
	e.POST("/logout", h.Logout, csrf)
	e.GET("/dashboard", h.Dashboard, csrf)
	e.GET("/products", h.ProductsPage, csrf)
	e.GET("/products/new", h.ProductNewPage, csrf)
	e.POST("/products/new", h.ProductNewSubmit, csrf)
	e.POST("/products/:id/delete", h.ProductDelete, csrf)
}
