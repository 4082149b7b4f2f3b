package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AdminConfig is what cmd/createadmin needs. It is loaded on its own so the
// tool runs without the server's secrets.
type AdminConfig struct {
	Env        string `env:"APP_ENV" envDefault:"dev"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"12"`
	Email      string `env:"ADMIN_EMAIL"`
	Password   string `env:"ADMIN_PASSWORD"`
	Name       string `env:"ADMIN_NAME" envDefault:"Admin"`
	Role       string `env:"ADMIN_ROLE" envDefault:"admin"`
	Database   DatabaseConfig
}

// AuditConfig is what cmd/auditlog needs.
type AuditConfig struct {
	Env      string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Queue    QueueConfig
}

// LoadAdmin reads the optional .env file and parses AdminConfig.
func LoadAdmin() (AdminConfig, error) {
	_ = godotenv.Load()
	cfg, err := env.ParseAs[AdminConfig]()
	if err != nil {
		return AdminConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadAudit reads the optional .env file and parses AuditConfig.
func LoadAudit() (AuditConfig, error) {
	_ = godotenv.Load()
	cfg, err := env.ParseAs[AuditConfig]()
	if err != nil {
		return AuditConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Queue.URL == "" {
		return AuditConfig{}, fmt.Errorf("AMQP_URL is required")
	}
	return cfg, nil
}

// IsProduction reports whether the tool runs with production settings.
func (c AuditConfig) IsProduction() bool { return Config{Env: c.Env}.IsProduction() }

// IsProduction reports whether the tool runs with production settings.
func (c AdminConfig) IsProduction() bool { return Config{Env: c.Env}.IsProduction() }
