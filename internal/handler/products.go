package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/middleware"
	"github.com/iliyamo/oob-marketplace/internal/service"
)

// ProductHandler serves /api/products. List and get are public and may be
// cached; every mutation purges the cache.
type ProductHandler struct {
	Products *service.ProductService
	Cache    *middleware.ResponseCache // nil disables purging
	Log      *slog.Logger
}

type productReq struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	ImageURL    string  `json:"image_url"`
}

// productPatchReq uses pointers so omitted fields keep their stored value.
type productPatchReq struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Currency    *string  `json:"currency"`
	ImageURL    *string  `json:"image_url"`
}

// List returns a page of products. limit defaults to 50 and is clamped to
// [1,100]; offset below zero becomes zero.
func (h *ProductHandler) List(c echo.Context) error {
	limit := service.DefaultProductLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	offset := 0
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offset"})
		}
		offset = n
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	items, err := h.Products.List(ctx, limit, offset)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]productResp, 0, len(items))
	for _, p := range items {
		out = append(out, toProductResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one product.
func (h *ProductHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Products.Get(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toProductResp(p))
}

// Create lists a new product for the Bearer user.
func (h *ProductHandler) Create(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Products.Create(ctx, u, service.ProductInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, toProductResp(p))
}

// Update applies a partial update. Owner or admin only.
func (h *ProductHandler) Update(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	var req productPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Products.Update(ctx, u, id, service.ProductPatch{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, toProductResp(p))
}

// Delete removes a product. Owner or admin only.
func (h *ProductHandler) Delete(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Products.Delete(ctx, u, id); err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// Stats returns catalogue counts for the Bearer user.
func (h *ProductHandler) Stats(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	st, err := h.Products.Stats(ctx, u)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": st.Total, "mine": st.Mine})
}

func (h *ProductHandler) purge(c echo.Context) {
	if err := h.Cache.Purge(c.Request().Context()); err != nil {
		h.Log.Warn("product cache purge failed", "err", err)
	}
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}
