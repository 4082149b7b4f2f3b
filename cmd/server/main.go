package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/oob-marketplace/internal/config"
	"github.com/iliyamo/oob-marketplace/internal/database"
	"github.com/iliyamo/oob-marketplace/internal/handler"
	"github.com/iliyamo/oob-marketplace/internal/logging"
	"github.com/iliyamo/oob-marketplace/internal/middleware"
	"github.com/iliyamo/oob-marketplace/internal/queue"
	"github.com/iliyamo/oob-marketplace/internal/repository"
	"github.com/iliyamo/oob-marketplace/internal/router"
	"github.com/iliyamo/oob-marketplace/internal/service"
	"github.com/iliyamo/oob-marketplace/internal/utils"
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.IsProduction(), cfg.LogLevel)
	log.Info("starting marketplace", "env", cfg.Env, "port", cfg.Port)

	// --- MySQL ---
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Error("failed to connect to MySQL", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.Database.ApplySchema {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.ApplySchema(ctx, db)
		cancel()
		if err != nil {
			log.Error("failed to apply schema", "err", err)
			os.Exit(1)
		}
	}

	// --- Redis (optional) ---
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
		log.Info("connected to Redis", "addr", cfg.Redis.Addr)
	} else {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	}

	// --- Audit events (optional) ---
	var events queue.Publisher = queue.Nop{}
	if cfg.Queue.URL != "" {
		p := queue.NewAMQPPublisher(cfg.Queue.URL, cfg.Queue.AuditName, log)
		defer p.Close()
		events = p
	}

	e, err := buildServer(cfg, log, db, rdb, events)
	if err != nil {
		log.Error("failed to build server", "err", err)
		os.Exit(1)
	}

	// --- Graceful shutdown ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced shutdown", "err", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Info("listening", "addr", addr)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// buildServer wires stores, services, handlers and routes onto a new echo
// instance.
func buildServer(cfg config.Config, log *slog.Logger, db *sql.DB, rdb *redis.Client, events queue.Publisher) (*echo.Echo, error) {
	codec, err := utils.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm, cfg.Auth.AccessTTL())
	if err != nil {
		return nil, err
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	products := repository.NewProductRepo(db)

	auth, err := service.NewAuthService(users, sessions, codec, service.AuthOptions{
		RefreshTTL: cfg.Auth.RefreshTTL(),
		BcryptCost: cfg.Auth.BcryptCost,
		Cookie: service.CookieAttrs{
			Name:     cfg.Cookie.RefreshName,
			Domain:   cfg.Cookie.Domain,
			Secure:   cfg.Cookie.Secure,
			SameSite: cfg.Cookie.SameSiteMode(),
		},
	}, events, log)
	if err != nil {
		return nil, err
	}
	catalogue := service.NewProductService(products)

	deps := service.OAuthDeps{
		Auth:        auth,
		Users:       users,
		StateSecret: cfg.Auth.CSRFSecret,
		Timeout:     cfg.OAuth.HTTPTimeout,
		Log:         log,
	}
	oauthH := &handler.OAuthHandler{
		Cookie:      auth.CookieAttrs(),
		StateSecret: cfg.Auth.CSRFSecret,
		Log:         log,
	}
	if cfg.OAuth.Google.Enabled() {
		oauthH.Google = service.NewGoogleLogin(cfg.OAuth.Google, deps)
	}
	if cfg.OAuth.Twitter.Enabled() {
		oauthH.Twitter = service.NewTwitterLogin(cfg.OAuth.Twitter, cfg.OAuth.TwitterAllowPseudoEmail, cfg.OAuth.PseudoEmailDomain, deps)
	}

	cache := middleware.NewResponseCache(cfg.Cache, rdb, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: !allowsAny(cfg.CORSOrigins),
	}))

	router.Register(e, router.Deps{
		Auth:  handler.NewAuthHandler(auth, log),
		OAuth: oauthH,
		Products: &handler.ProductHandler{
			Products: catalogue,
			Cache:    cache,
			Log:      log,
		},
		UI: &handler.UIHandler{
			Auth:     auth,
			Products: catalogue,
			Cache:    cache,
			CSRF: middleware.CSRFConfig{
				Secret:   cfg.Auth.CSRFSecret,
				Secure:   cfg.Cookie.Secure,
				SameSite: cfg.Cookie.SameSiteMode(),
				Domain:   cfg.Cookie.Domain,
			},
			Google:  oauthH.Google != nil,
			Twitter: oauthH.Twitter != nil,
			Log:     log,
		},
		Readiness: handler.Readiness{DB: db, Redis: rdb},
		Codec:     codec,
		Users:     auth,
		Guard: middleware.UIGuard(middleware.UIGuardConfig{
			PublicPaths:       cfg.UI.PublicPaths,
			ProtectedPrefixes: cfg.UI.ProtectedPrefixes,
			SkipPrefixes:      cfg.UI.SkipPrefixes,
			RootRedirect:      cfg.UI.RootRedirect,
			RefreshCookie:     cfg.Cookie.RefreshName,
		}, auth),
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		Cache:     cache,
	})
	return e, nil
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
