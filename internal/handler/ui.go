package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/oob-marketplace/internal/middleware"
	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/service"
	"github.com/iliyamo/oob-marketplace/internal/view"
)

// uiProductPage is how many products the HTML catalogue shows.
const uiProductPage = 100

// UIHandler serves the server-rendered pages. The UI guard has already
// resolved the refresh cookie, so handlers read the user with
// middleware.CurrentUser. Form posts pass the CSRF gate before reaching
// them.
type UIHandler struct {
	Auth     *service.AuthService
	Products *service.ProductService
	Cache    *middleware.ResponseCache
	CSRF     middleware.CSRFConfig
	Google   bool // show the Google button
	Twitter  bool // show the X button
	Log      *slog.Logger
}

func (h *UIHandler) page(c echo.Context, title string) view.Page {
	p := view.Page{Title: title, CSRF: middleware.CSRFToken(c)}
	if u, ok := middleware.CurrentUser(c); ok {
		p.Me = &u
	}
	return p
}

// rotate issues a fresh CSRF pair, as done after every auth state change
// and before redisplaying a rejected form.
func (h *UIHandler) rotate(c echo.Context) {
	if err := middleware.IssueCSRF(c, h.CSRF); err != nil {
		h.Log.Error("issue csrf token", "err", err)
	}
}

// Index is the landing page.
func (h *UIHandler) Index(c echo.Context) error {
	return render(c, http.StatusOK, view.Index(h.page(c, "Welcome")))
}

// LoginPage renders the login form.
func (h *UIHandler) LoginPage(c echo.Context) error {
	return render(c, http.StatusOK, view.Login(h.page(c, "Login"), view.LoginForm{}, h.Google, h.Twitter))
}

// LoginSubmit signs the user in and lands on the dashboard.
func (h *UIHandler) LoginSubmit(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	form := view.LoginForm{Email: email}

	if email == "" || password == "" {
		return h.loginError(c, http.StatusBadRequest, form, "Email and password are required.")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	iss, err := h.Auth.Login(ctx, service.LoginInput{
		Email:     email,
		Password:  password,
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	})
	if err != nil {
		status, msg := classify(err)
		if status >= 500 {
			h.Log.Error("ui login", "err", err)
		}
		return h.loginError(c, status, form, msg)
	}
	c.SetCookie(iss.Cookie.Cookie(iss.RefreshToken))
	h.rotate(c)
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *UIHandler) loginError(c echo.Context, status int, form view.LoginForm, msg string) error {
	h.rotate(c)
	p := h.page(c, "Login")
	p.Error = msg
	return render(c, status, view.Login(p, form, h.Google, h.Twitter))
}

// RegisterPage renders the registration form.
func (h *UIHandler) RegisterPage(c echo.Context) error {
	return render(c, http.StatusOK, view.Register(h.page(c, "Register"), view.RegisterForm{}))
}

// RegisterSubmit creates the account and sends the user to the login page.
func (h *UIHandler) RegisterSubmit(c echo.Context) error {
	form := view.RegisterForm{
		Email: strings.TrimSpace(c.FormValue("email")),
		Name:  strings.TrimSpace(c.FormValue("name")),
	}
	password := c.FormValue("password")
	if form.Email == "" || password == "" {
		return h.registerError(c, http.StatusBadRequest, form, "Email and password are required.")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if _, err := h.Auth.Register(ctx, service.RegisterInput{Email: form.Email, Password: password, Name: form.Name}); err != nil {
		status, msg := classify(err)
		if status >= 500 {
			h.Log.Error("ui register", "err", err)
		} else {
			status = http.StatusBadRequest
		}
		return h.registerError(c, status, form, msg)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *UIHandler) registerError(c echo.Context, status int, form view.RegisterForm, msg string) error {
	h.rotate(c)
	p := h.page(c, "Register")
	p.Error = msg
	return render(c, status, view.Register(p, form))
}

// Logout revokes the cookie's session (if any), clears the cookie and
// rotates the CSRF token.
func (h *UIHandler) Logout(c echo.Context) error {
	attrs := h.Auth.CookieAttrs()
	if ck, err := c.Cookie(attrs.Name); err == nil && ck.Value != "" {
		ctx, cancel := withTimeout(c)
		defer cancel()
		if err := h.Auth.LogoutCurrent(ctx, ck.Value); err != nil {
			h.Log.Warn("ui logout", "err", err)
		}
	}
	c.SetCookie(attrs.Expired())
	h.rotate(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Dashboard shows the signed-in user with catalogue counts.
func (h *UIHandler) Dashboard(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Redirect(http.StatusFound, "/login")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	stats, err := h.Products.Stats(ctx, u)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return render(c, http.StatusOK, view.Dashboard(h.page(c, "Dashboard"), stats))
}

// ProductsPage lists the catalogue.
func (h *UIHandler) ProductsPage(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	items, err := h.Products.List(ctx, uiProductPage, 0)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return render(c, http.StatusOK, view.Products(h.page(c, "Products"), items))
}

// ProductNewPage renders the create form for sellers and admins.
func (h *UIHandler) ProductNewPage(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Redirect(http.StatusFound, "/login")
	}
	if err := service.Authorize(u, model.RoleSeller, model.RoleAdmin); err != nil {
		return writeError(c, h.Log, err)
	}
	return render(c, http.StatusOK, view.ProductNew(h.page(c, "Create product"), view.ProductForm{}))
}

// ProductNewSubmit creates a product and returns to the catalogue.
func (h *UIHandler) ProductNewSubmit(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Redirect(http.StatusFound, "/login")
	}
	form := view.ProductForm{
		Title:       strings.TrimSpace(c.FormValue("title")),
		Description: strings.TrimSpace(c.FormValue("description")),
		Price:       strings.TrimSpace(c.FormValue("price")),
		Currency:    strings.TrimSpace(c.FormValue("currency")),
		ImageURL:    strings.TrimSpace(c.FormValue("image_url")),
	}
	price := 0.0
	if form.Price != "" {
		v, err := strconv.ParseFloat(form.Price, 64)
		if err != nil {
			return h.productFormError(c, form, "Price must be a number.")
		}
		price = v
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	_, err := h.Products.Create(ctx, u, service.ProductInput{
		Title:       form.Title,
		Description: form.Description,
		Price:       price,
		Currency:    form.Currency,
		ImageURL:    form.ImageURL,
	})
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return h.productFormError(c, form, "Title is required, price must not be negative and currency must be a 3-letter code.")
	case err != nil:
		return writeError(c, h.Log, err)
	}
	h.purge(c)
	return c.Redirect(http.StatusSeeOther, "/products")
}

func (h *UIHandler) productFormError(c echo.Context, form view.ProductForm, msg string) error {
	h.rotate(c)
	p := h.page(c, "Create product")
	p.Error = msg
	return render(c, http.StatusBadRequest, view.ProductNew(p, form))
}

// ProductDelete removes a product owned by the user (or any, for admins).
func (h *UIHandler) ProductDelete(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Redirect(http.StatusFound, "/login")
	}
	id, ok := parseID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/products")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Products.Delete(ctx, u, id); err != nil && !errors.Is(err, service.ErrNotFound) {
		return writeError(c, h.Log, err)
	}
	h.purge(c)
	return c.Redirect(http.StatusSeeOther, "/products")
}

// CSRFFailure answers a form post whose CSRF token did not verify. The auth
// forms are redisplayed with 400; other forms bounce back with 303.
func (h *UIHandler) CSRFFailure(c echo.Context) error {
	const msg = "Invalid CSRF token."
	switch c.Path() {
	case "/login":
		return h.loginError(c, http.StatusBadRequest, view.LoginForm{}, msg)
	case "/register":
		return h.registerError(c, http.StatusBadRequest, view.RegisterForm{}, msg)
	case "/logout":
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	return c.Redirect(http.StatusSeeOther, "/products")
}

func (h *UIHandler) purge(c echo.Context) {
	if err := h.Cache.Purge(c.Request().Context()); err != nil {
		h.Log.Warn("product cache purge failed", "err", err)
	}
}
