package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full process configuration assembled from the environment.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Shopify  ShopifyConfig
	Cache    CacheConfig
	Limits   RateLimitConfig
}

type AppConfig struct {
	Env           string `env:"APP_ENV" envDefault:"development"`
	Port          int    `env:"PORT" envDefault:"3001"`
	AppURL        string `env:"APP_URL"`
	FrontendURL   string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	AdminPort     int    `env:"ADMIN_PORT" envDefault:"5173"`
}

// IsProduction reports whether the process runs with APP_ENV=production.
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// Addr is the listen address for the API server.
func (c AppConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Load reads .env (if present) and binds the environment into a Config.
// A missing .env file is not an error; the caller decides whether to warn.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// LoadFile is Load with an explicit dotenv path. Unlike Load, a missing file is reported.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return FromEnv()
}

// FromEnv binds the current process environment without touching .env files.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.App.AppURL == "" {
		cfg.App.AppURL = fmt.Sprintf("http://localhost:%d", cfg.App.Port)
	}
	cfg.Shopify.Scopes = normalizeScopes(cfg.Shopify.Scopes)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.App.Port)
	}
	if c.App.AdminPort <= 0 || c.App.AdminPort > 65535 {
		return fmt.Errorf("invalid ADMIN_PORT %d", c.App.AdminPort)
	}
	if c.Limits.Enabled() && c.Limits.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if _, err := c.Limits.Proxies(); err != nil {
		return err
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid DB_PORT %d", c.Database.Port)
	}
	if c.Database.ConnectionLimit <= 0 {
		return fmt.Errorf("DB_CONNECTION_LIMIT must be positive")
	}
	if c.Database.ConnectRetries <= 0 {
		return fmt.Errorf("DB_CONNECT_RETRIES must be positive")
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
