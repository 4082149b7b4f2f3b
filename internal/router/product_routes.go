package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/middleware"
	"github.com/iliyamo/oob-marketplace/internal/model"
)

// RegisterProducts registers the catalogue API under /api/products. Reads
// are public and go through the response cache; writes require a Bearer
// token and the seller or admin role, with ownership checked in the
// service.
func RegisterProducts(e *echo.Echo, d Deps) {
	p := d.Products
	bearer := middleware.BearerAuth(d.Codec, d.Users)
	cached := d.Cache.Middleware()
	seller := middleware.RequireRole(model.RoleSeller, model.RoleAdmin)

	e.GET("/api/products/stats", p.Stats, bearer)
	e.GET("/api/products", p.List, cached)
	e.GET("/api/products/:id", p.Get, cached)

	e.POST("/api/products", p.Create, bearer, seller)
	e.PUT("/api/products/:id", p.Update, bearer, seller)
	e.DELETE("/api/products/:id", p.Delete, bearer, seller)
}
