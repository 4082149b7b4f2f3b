package config // package config loads application configuration from environment variables

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. It is loaded once at startup
// and passed by value to the components that need it; no package reads the
// environment on its own after Load returns.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"dev"`      // application environment (dev/test/prod)
	Port     string `env:"APP_PORT" envDefault:"8010"`    // HTTP port to listen on
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`  // debug, info, warn, error
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:8010"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*"`

	Database  DatabaseConfig
	Auth      AuthConfig
	Cookie    CookieConfig
	OAuth     OAuthConfig
	UI        UIConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Queue     QueueConfig
}

// DatabaseConfig holds MySQL connection and pool settings.
type DatabaseConfig struct {
	User            string        `env:"DB_USER,required"`
	Pass            string        `env:"DB_PASS"` // empty allowed
	Host            string        `env:"DB_HOST,required"`
	Port            string        `env:"DB_PORT" envDefault:"3306"`
	Name            string        `env:"DB_NAME,required"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	ApplySchema     bool          `env:"APPLY_SCHEMA_ON_START" envDefault:"true"`
}

// DSN builds the go-sql-driver/mysql connection string. parseTime maps
// DATETIME columns to time.Time and loc=UTC reads them as UTC; the session
// time_zone is pinned to UTC as well so CURRENT_TIMESTAMP defaults agree.
func (d DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.Host, d.Port)
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4", "time_zone": "'+00:00'"}
	return cfg.FormatDSN()
}

// AuthConfig holds token and hashing settings.
type AuthConfig struct {
	JWTSecret      string `env:"JWT_SECRET,required,notEmpty"`
	JWTAlgorithm   string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	AccessTTLMin   int    `env:"ACCESS_TOKEN_TTL_MIN" envDefault:"15"`
	RefreshTTLDays int    `env:"REFRESH_TOKEN_TTL_DAYS" envDefault:"30"`
	BcryptCost     int    `env:"BCRYPT_COST" envDefault:"12"`
	CSRFSecret     string `env:"CSRF_SECRET,required,notEmpty"` // signs CSRF tokens and OAuth state
}

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTTLMin) * time.Minute
}

// RefreshTTL returns the refresh session lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLDays) * 24 * time.Hour
}

// CookieConfig controls attributes of every cookie the application sets.
type CookieConfig struct {
	RefreshName string `env:"REFRESH_COOKIE_NAME" envDefault:"refresh_token"`
	Secure      bool   `env:"COOKIE_SECURE" envDefault:"false"`
	SameSite    string `env:"COOKIE_SAMESITE" envDefault:"lax"`
	Domain      string `env:"COOKIE_DOMAIN"`
}

// SameSiteMode maps the configured policy name onto net/http's enum.
// Unknown values fall back to Lax.
func (c CookieConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(strings.TrimSpace(c.SameSite)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// OAuthProvider describes one OAuth2 authorization server.
type OAuthProvider struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	RedirectURI  string   `env:"REDIRECT_URI"`
	AuthURL      string   `env:"AUTH_URL"`
	TokenURL     string   `env:"TOKEN_URL"`
	UserInfoURL  string   `env:"USERINFO_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:" "`
}

// Enabled reports whether the provider has enough configuration to start a flow.
func (p OAuthProvider) Enabled() bool {
	return p.ClientID != "" && p.RedirectURI != ""
}

// OAuthConfig groups the provider settings.
type OAuthConfig struct {
	Google  OAuthProvider `envPrefix:"OAUTH_GOOGLE_"`
	Twitter OAuthProvider `envPrefix:"OAUTH_TWITTER_"`

	TwitterAllowPseudoEmail bool          `env:"OAUTH_TWITTER_ALLOW_PSEUDO_EMAIL" envDefault:"false"`
	PseudoEmailDomain       string        `env:"OAUTH_PSEUDO_EMAIL_DOMAIN"`
	HTTPTimeout             time.Duration `env:"OAUTH_HTTP_TIMEOUT" envDefault:"15s"`
}

// UIConfig drives the server-side route guard in front of HTML pages.
type UIConfig struct {
	PublicPaths       []string `env:"UI_PUBLIC_PATHS" envDefault:"/login,/register,/health,/healthz,/static,/favicon.ico"`
	ProtectedPrefixes []string `env:"UI_PROTECTED_PREFIXES" envDefault:"/dashboard,/products"`
	SkipPrefixes      []string `env:"UI_SKIP_PREFIXES" envDefault:"/api,/auth,/oauth"`
	RootRedirect      bool     `env:"UI_ROOT_REDIRECT" envDefault:"true"`
}

// QueueConfig holds the RabbitMQ settings for audit events. An empty URL
// disables publishing.
type QueueConfig struct {
	URL       string `env:"AMQP_URL"`
	AuditName string `env:"AUDIT_QUEUE" envDefault:"auth.events"`
	LogPath   string `env:"AUDIT_LOG_PATH" envDefault:"logs/auth.log"`
}

// IsProduction reports whether the app runs with production settings.
func (c Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "prod" || env == "production"
}

// Load reads an optional .env file and then parses the environment into a
// Config, applying defaults and defaults derived from other fields.
func Load() (Config, error) {
	_ = godotenv.Load() // the .env file is optional

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	applyProviderDefaults(&cfg.OAuth)
	cfg.CORSOrigins = normalizeList(cfg.CORSOrigins)
	cfg.UI.PublicPaths = normalizeList(cfg.UI.PublicPaths)
	cfg.UI.ProtectedPrefixes = normalizeList(cfg.UI.ProtectedPrefixes)
	cfg.UI.SkipPrefixes = normalizeList(cfg.UI.SkipPrefixes)
	cfg.RateLimit = cfg.RateLimit.normalized()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Auth.AccessTTLMin <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive")
	}
	if c.Auth.RefreshTTLDays <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL_DAYS must be positive")
	}
	if c.IsProduction() {
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if len(c.Auth.CSRFSecret) < 32 {
			return fmt.Errorf("CSRF_SECRET must be at least 32 characters in production")
		}
	}
	return nil
}

func applyProviderDefaults(o *OAuthConfig) {
	g := &o.Google
	g.AuthURL = orDefault(g.AuthURL, "https://accounts.google.com/o/oauth2/v2/auth")
	g.TokenURL = orDefault(g.TokenURL, "https://oauth2.googleapis.com/token")
	g.UserInfoURL = orDefault(g.UserInfoURL, "https://openidconnect.googleapis.com/v1/userinfo")
	g.RedirectURI = orDefault(g.RedirectURI, "http://localhost:8010/oauth/google/callback")
	if len(g.Scopes) == 0 {
		g.Scopes = []string{"openid", "email", "profile"}
	}

	t := &o.Twitter
	t.AuthURL = orDefault(t.AuthURL, "https://twitter.com/i/oauth2/authorize")
	t.TokenURL = orDefault(t.TokenURL, "https://api.twitter.com/2/oauth2/token")
	t.UserInfoURL = orDefault(t.UserInfoURL, "https://api.twitter.com/2/users/me")
	t.RedirectURI = orDefault(t.RedirectURI, "http://localhost:8010/oauth/twitter/callback")
	if len(t.Scopes) == 0 {
		t.Scopes = []string{"tweet.read", "users.read", "offline.access"}
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// normalizeList trims entries of a comma-configured list and drops empties.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
