package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/oob-marketplace/internal/config"
	"github.com/iliyamo/oob-marketplace/internal/handler"
	"github.com/iliyamo/oob-marketplace/internal/middleware"
	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/service"
	"github.com/iliyamo/oob-marketplace/internal/utils"
)

const (
	testJWTSecret  = "jwt-secret-for-tests-0123456789abcdef"
	testCSRFSecret = "csrf-secret-for-tests-0123456789abcdef"
	refreshCookie  = "refresh_token"
)

type testApp struct {
	srv           *httptest.Server
	users         userStore
	providerCalls *atomic.Int32
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	st := newStore()
	users, sessions, products := userStore{st}, sessionStore{st}, productStore{st}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	codec, err := utils.NewTokenCodec(testJWTSecret, "HS256", 15*time.Minute)
	require.NoError(t, err)
	auth, err := service.NewAuthService(users, sessions, codec, service.AuthOptions{
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
		Cookie:     service.CookieAttrs{Name: refreshCookie, SameSite: http.SameSiteLaxMode},
	}, nil, log)
	require.NoError(t, err)
	catalogue := service.NewProductService(products)

	var calls atomic.Int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unexpected", http.StatusInternalServerError)
	}))
	t.Cleanup(provider.Close)

	google := service.NewGoogleLogin(config.OAuthProvider{
		ClientID:    "cid",
		RedirectURI: "http://localhost/oauth/google/callback",
		AuthURL:     provider.URL + "/auth",
		TokenURL:    provider.URL + "/token",
		UserInfoURL: provider.URL + "/userinfo",
		Scopes:      []string{"openid", "email"},
	}, service.OAuthDeps{Auth: auth, Users: users, StateSecret: testCSRFSecret, Timeout: 2 * time.Second, Log: log})

	e := echo.New()
	Register(e, Deps{
		Auth:     handler.NewAuthHandler(auth, log),
		OAuth:    &handler.OAuthHandler{Google: google, Cookie: auth.CookieAttrs(), StateSecret: testCSRFSecret, Log: log},
		Products: &handler.ProductHandler{Products: catalogue, Log: log},
		UI: &handler.UIHandler{
			Auth:     auth,
			Products: catalogue,
			CSRF:     middleware.CSRFConfig{Secret: testCSRFSecret, SameSite: http.SameSiteLaxMode},
			Google:   true,
			Log:      log,
		},
		Codec: codec,
		Users: auth,
		Guard: middleware.UIGuard(middleware.UIGuardConfig{
			PublicPaths:       []string{"/login", "/register", "/health", "/healthz"},
			ProtectedPrefixes: []string{"/dashboard", "/products"},
			SkipPrefixes:      []string{"/api", "/auth", "/oauth"},
			RootRedirect:      true,
			RefreshCookie:     refreshCookie,
		}, auth),
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, users: users, providerCalls: &calls}
}

// client returns an http.Client with its own cookie jar that does not
// follow redirects.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type response struct {
	status  int
	header  http.Header
	cookies []*http.Cookie
	body    string
}

func (r response) cookie(name string) *http.Cookie {
	for _, c := range r.cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (r response) json(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.body), &m), r.body)
	return m
}

type reqOpt func(*http.Request)

func bearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+token) }
}

func withCookie(name, value string) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

func (a *testApp) do(t *testing.T, c *http.Client, method, path, body string, opts ...reqOpt) response {
	t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		if strings.HasPrefix(body, "{") {
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		} else {
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		}
	}
	for _, o := range opts {
		o(req)
	}
	res, err := c.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return response{status: res.StatusCode, header: res.Header, cookies: res.Cookies(), body: string(b)}
}

func (a *testApp) login(t *testing.T, c *http.Client, email, password string) (access, refresh string) {
	t.Helper()
	res := a.do(t, c, http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, res.status, res.body)
	ck := res.cookie(refreshCookie)
	require.NotNil(t, ck)
	return res.json(t)["access_token"].(string), ck.Value
}

func TestAuthAPI_AliceLifecycle(t *testing.T) {
	app := newTestApp(t)
	plain := &http.Client{}

	reg := app.do(t, plain, http.MethodPost, "/auth/register", `{"email":"Alice@Example.com","password":"wonderland","name":"Alice"}`)
	require.Equal(t, http.StatusCreated, reg.status, reg.body)
	assert.Equal(t, "alice@example.com", reg.json(t)["email"])
	assert.Equal(t, "buyer", reg.json(t)["role"])

	dup := app.do(t, plain, http.MethodPost, "/auth/register", `{"email":"alice@example.com","password":"x"}`)
	assert.Equal(t, http.StatusConflict, dup.status)

	bad := app.do(t, plain, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"nope"}`)
	unknown := app.do(t, plain, http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, bad.status)
	assert.Equal(t, bad.body, unknown.body)

	access, r1 := app.login(t, plain, "alice@example.com", "wonderland")

	me := app.do(t, plain, http.MethodGet, "/auth/me", "", bearer(access))
	require.Equal(t, http.StatusOK, me.status)
	assert.Equal(t, "Alice", me.json(t)["name"])

	rot := app.do(t, plain, http.MethodPost, "/auth/refresh", "", withCookie(refreshCookie, r1))
	require.Equal(t, http.StatusOK, rot.status, rot.body)
	r2 := rot.cookie(refreshCookie).Value
	assert.NotEqual(t, r1, r2)
	assert.Equal(t, "bearer", rot.json(t)["token_type"])

	// The rotated-away token is dead; the body fallback is accepted too.
	old := app.do(t, plain, http.MethodPost, "/auth/refresh", "", withCookie(refreshCookie, r1))
	assert.Equal(t, http.StatusUnauthorized, old.status)
	assert.JSONEq(t, `{"error":"unauthorized"}`, old.body)
	viaBody := app.do(t, plain, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+r2+`"}`)
	require.Equal(t, http.StatusOK, viaBody.status)
	r3 := viaBody.cookie(refreshCookie).Value

	sessions := app.do(t, plain, http.MethodGet, "/auth/sessions", "", bearer(access))
	require.Equal(t, http.StatusOK, sessions.status)
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(sessions.body), &list))
	assert.Len(t, list, 1)

	out := app.do(t, plain, http.MethodPost, "/auth/logout", "", withCookie(refreshCookie, r3))
	assert.Equal(t, http.StatusNoContent, out.status)
	cleared := out.cookie(refreshCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	after := app.do(t, plain, http.MethodPost, "/auth/refresh", "", withCookie(refreshCookie, r3))
	assert.Equal(t, http.StatusUnauthorized, after.status)

	assert.Equal(t, http.StatusUnauthorized, app.do(t, plain, http.MethodPost, "/auth/refresh", "").status)
	assert.Equal(t, http.StatusNoContent, app.do(t, plain, http.MethodPost, "/auth/logout", "").status)
}

func TestAuthAPI_LogoutAll(t *testing.T) {
	app := newTestApp(t)
	plain := &http.Client{}
	for _, email := range []string{"a@x.io", "b@x.io"} {
		res := app.do(t, plain, http.MethodPost, "/auth/register", `{"email":"`+email+`","password":"pw-123456"}`)
		require.Equal(t, http.StatusCreated, res.status)
	}
	accessA, a1 := app.login(t, plain, "a@x.io", "pw-123456")
	_, a2 := app.login(t, plain, "a@x.io", "pw-123456")
	_, b1 := app.login(t, plain, "b@x.io", "pw-123456")

	noBearer := app.do(t, plain, http.MethodPost, "/auth/logout", `{"all":true}`, withCookie(refreshCookie, a1))
	assert.Equal(t, http.StatusUnauthorized, noBearer.status)

	all := app.do(t, plain, http.MethodPost, "/auth/logout", `{"all":true}`, bearer(accessA))
	assert.Equal(t, http.StatusNoContent, all.status)

	for _, rt := range []string{a1, a2} {
		assert.Equal(t, http.StatusUnauthorized, app.do(t, plain, http.MethodPost, "/auth/refresh", "", withCookie(refreshCookie, rt)).status)
	}
	assert.Equal(t, http.StatusOK, app.do(t, plain, http.MethodPost, "/auth/refresh", "", withCookie(refreshCookie, b1)).status)
}

func TestAuthAPI_RevokeOtherUsersSessionLooksMissing(t *testing.T) {
	app := newTestApp(t)
	plain := &http.Client{}
	for _, email := range []string{"a@x.io", "b@x.io"} {
		require.Equal(t, http.StatusCreated, app.do(t, plain, http.MethodPost, "/auth/register", `{"email":"`+email+`","password":"pw-123456"}`).status)
	}
	accessA, _ := app.login(t, plain, "a@x.io", "pw-123456")
	_, b1 := app.login(t, plain, "b@x.io", "pw-123456")
	bID, _, err := utils.ParseRefreshToken(b1)
	require.NoError(t, err)

	foreign := app.do(t, plain, http.MethodPost, "/auth/sessions/"+itoa(bID)+"/revoke", "", bearer(accessA))
	missing := app.do(t, plain, http.MethodPost, "/auth/sessions/999/revoke", "", bearer(accessA))
	assert.Equal(t, http.StatusNotFound, foreign.status)
	assert.Equal(t, missing.status, foreign.status)
	assert.Equal(t, missing.body, foreign.body)

	// B's session is untouched.
	assert.Equal(t, http.StatusOK, app.do(t, plain, http.MethodPost, "/auth/refresh", "", withCookie(refreshCookie, b1)).status)
}

func TestProductsAPI(t *testing.T) {
	app := newTestApp(t)
	plain := &http.Client{}
	for _, email := range []string{"seller@x.io", "buyer@x.io"} {
		require.Equal(t, http.StatusCreated, app.do(t, plain, http.MethodPost, "/auth/register", `{"email":"`+email+`","password":"pw-123456"}`).status)
	}
	seller, err := app.users.FindByEmail(t.Context(), "seller@x.io")
	require.NoError(t, err)
	app.users.setRole(seller.ID, model.RoleSeller)

	sellerTok, _ := app.login(t, plain, "seller@x.io", "pw-123456")
	buyerTok, _ := app.login(t, plain, "buyer@x.io", "pw-123456")

	assert.Equal(t, http.StatusUnauthorized, app.do(t, plain, http.MethodPost, "/api/products", `{"title":"Lamp","price":10}`).status)
	assert.Equal(t, http.StatusForbidden, app.do(t, plain, http.MethodPost, "/api/products", `{"title":"Lamp","price":10}`, bearer(buyerTok)).status)
	assert.Equal(t, http.StatusBadRequest, app.do(t, plain, http.MethodPost, "/api/products", `{"title":" ","price":10}`, bearer(sellerTok)).status)

	created := app.do(t, plain, http.MethodPost, "/api/products", `{"title":"Lamp","price":10,"currency":"eur"}`, bearer(sellerTok))
	require.Equal(t, http.StatusCreated, created.status, created.body)
	p := created.json(t)
	assert.Equal(t, "EUR", p["currency"])
	id := itoa(uint64(p["id"].(float64)))

	upd := app.do(t, plain, http.MethodPut, "/api/products/"+id, `{"price":12.5}`, bearer(sellerTok))
	require.Equal(t, http.StatusOK, upd.status, upd.body)
	assert.Equal(t, "Lamp", upd.json(t)["title"])
	assert.EqualValues(t, 12.5, upd.json(t)["price"])

	list := app.do(t, plain, http.MethodGet, "/api/products?limit=500", "")
	require.Equal(t, http.StatusOK, list.status)
	assert.Contains(t, list.body, `"title":"Lamp"`)
	assert.Equal(t, http.StatusBadRequest, app.do(t, plain, http.MethodGet, "/api/products?limit=abc", "").status)

	stats := app.do(t, plain, http.MethodGet, "/api/products/stats", "", bearer(buyerTok))
	require.Equal(t, http.StatusOK, stats.status)
	assert.JSONEq(t, `{"total":1,"mine":0}`, stats.body)

	assert.Equal(t, http.StatusForbidden, app.do(t, plain, http.MethodDelete, "/api/products/"+id, "", bearer(buyerTok)).status)
	assert.Equal(t, http.StatusNoContent, app.do(t, plain, http.MethodDelete, "/api/products/"+id, "", bearer(sellerTok)).status)
	assert.Equal(t, http.StatusNotFound, app.do(t, plain, http.MethodGet, "/api/products/"+id, "").status)
}

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func formToken(t *testing.T, body string) string {
	t.Helper()
	m := csrfField.FindStringSubmatch(body)
	require.Len(t, m, 2, "no csrf token in page")
	return m[1]
}

func TestUI_LoginDashboardLogout(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	assert.Equal(t, "/login", app.do(t, c, http.MethodGet, "/", "").header.Get("Location"))
	assert.Equal(t, "/login", app.do(t, c, http.MethodGet, "/dashboard", "").header.Get("Location"))

	page := app.do(t, c, http.MethodGet, "/register", "")
	require.Equal(t, http.StatusOK, page.status)
	form := url.Values{"csrf_token": {formToken(t, page.body)}, "email": {"ui@x.io"}, "password": {"pw-123456"}, "name": {"Ui"}}
	reg := app.do(t, c, http.MethodPost, "/register", form.Encode())
	require.Equal(t, http.StatusSeeOther, reg.status, reg.body)
	assert.Equal(t, "/login", reg.header.Get("Location"))

	page = app.do(t, c, http.MethodGet, "/login", "")
	require.Equal(t, http.StatusOK, page.status)
	assert.Contains(t, page.body, "/oauth/google/start")

	forged := url.Values{"csrf_token": {"forged"}, "email": {"ui@x.io"}, "password": {"pw-123456"}}
	rejected := app.do(t, c, http.MethodPost, "/login", forged.Encode())
	assert.Equal(t, http.StatusBadRequest, rejected.status)
	assert.Contains(t, rejected.body, "Invalid CSRF token.")

	form = url.Values{"csrf_token": {formToken(t, rejected.body)}, "email": {"ui@x.io"}, "password": {"wrong"}}
	wrong := app.do(t, c, http.MethodPost, "/login", form.Encode())
	assert.Equal(t, http.StatusUnauthorized, wrong.status)
	assert.Contains(t, wrong.body, "invalid credentials")

	form = url.Values{"csrf_token": {formToken(t, wrong.body)}, "email": {"ui@x.io"}, "password": {"pw-123456"}}
	ok := app.do(t, c, http.MethodPost, "/login", form.Encode())
	require.Equal(t, http.StatusSeeOther, ok.status, ok.body)
	assert.Equal(t, "/dashboard", ok.header.Get("Location"))
	require.NotNil(t, ok.cookie(refreshCookie))
	require.NotNil(t, ok.cookie(middleware.CSRFCookieName))

	assert.Equal(t, "/dashboard", app.do(t, c, http.MethodGet, "/login", "").header.Get("Location"))

	dash := app.do(t, c, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, dash.status)
	assert.Contains(t, dash.body, "ui@x.io")
	assert.Contains(t, dash.body, "0 products listed")

	// Buyers cannot open the create form.
	assert.Equal(t, http.StatusForbidden, app.do(t, c, http.MethodGet, "/products/new", "").status)

	badLogout := app.do(t, c, http.MethodPost, "/logout", url.Values{"csrf_token": {"forged"}}.Encode())
	assert.Equal(t, http.StatusSeeOther, badLogout.status)
	assert.Equal(t, http.StatusOK, app.do(t, c, http.MethodGet, "/dashboard", "").status)

	dash = app.do(t, c, http.MethodGet, "/dashboard", "")
	out := app.do(t, c, http.MethodPost, "/logout", url.Values{"csrf_token": {formToken(t, dash.body)}}.Encode())
	require.Equal(t, http.StatusSeeOther, out.status)
	assert.Equal(t, "/login", out.header.Get("Location"))
	assert.Equal(t, "/login", app.do(t, c, http.MethodGet, "/dashboard", "").header.Get("Location"))
}

func TestUI_SellerCreatesAndDeletesProduct(t *testing.T) {
	app := newTestApp(t)
	plain := &http.Client{}
	require.Equal(t, http.StatusCreated, app.do(t, plain, http.MethodPost, "/auth/register", `{"email":"s@x.io","password":"pw-123456"}`).status)
	s, err := app.users.FindByEmail(t.Context(), "s@x.io")
	require.NoError(t, err)
	app.users.setRole(s.ID, model.RoleSeller)

	c := app.client(t)
	page := app.do(t, c, http.MethodGet, "/login", "")
	login := url.Values{"csrf_token": {formToken(t, page.body)}, "email": {"s@x.io"}, "password": {"pw-123456"}}
	require.Equal(t, http.StatusSeeOther, app.do(t, c, http.MethodPost, "/login", login.Encode()).status)

	page = app.do(t, c, http.MethodGet, "/products/new", "")
	require.Equal(t, http.StatusOK, page.status)
	invalid := url.Values{"csrf_token": {formToken(t, page.body)}, "title": {""}, "price": {"3"}}
	res := app.do(t, c, http.MethodPost, "/products/new", invalid.Encode())
	require.Equal(t, http.StatusBadRequest, res.status)

	create := url.Values{"csrf_token": {formToken(t, res.body)}, "title": {"Chair"}, "price": {"49.90"}}
	res = app.do(t, c, http.MethodPost, "/products/new", create.Encode())
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	assert.Equal(t, "/products", res.header.Get("Location"))

	list := app.do(t, c, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, list.status)
	assert.Contains(t, list.body, "Chair")
	assert.Contains(t, list.body, "49.90 USD")
	action := regexp.MustCompile(`action="(/products/\d+/delete)"`).FindStringSubmatch(list.body)
	require.Len(t, action, 2)

	del := app.do(t, c, http.MethodPost, action[1], url.Values{"csrf_token": {formToken(t, list.body)}}.Encode())
	require.Equal(t, http.StatusSeeOther, del.status)
	assert.NotContains(t, app.do(t, c, http.MethodGet, "/products", "").body, "Chair")
}

func TestOAuth_StateMismatchNeverReachesProvider(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	start := app.do(t, c, http.MethodGet, "/oauth/google/start", "")
	require.Equal(t, http.StatusFound, start.status)
	loc, err := url.Parse(start.header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	ck := start.cookie("oauth_state")
	require.NotNil(t, ck)
	assert.Equal(t, state, ck.Value)
	assert.Equal(t, 300, ck.MaxAge)

	res := app.do(t, c, http.MethodGet, "/oauth/google/callback?code=abc&state=tampered", "")
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Zero(t, app.providerCalls.Load())

	// Twitter is not configured.
	assert.Equal(t, http.StatusNotFound, app.do(t, c, http.MethodGet, "/oauth/twitter/start", "").status)
}

func itoa(n uint64) string { return strconv.FormatUint(n, 10) }
