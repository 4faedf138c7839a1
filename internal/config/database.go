package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"invoice_app"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	ConnectionLimit int           `env:"DB_CONNECTION_LIMIT" envDefault:"10"`
	MaxIdle         int           `env:"DB_MAX_IDLE" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnectRetries  int           `env:"DB_CONNECT_RETRIES" envDefault:"5"`
	ConnectDelay    time.Duration `env:"DB_CONNECT_DELAY" envDefault:"5s"`
}

// DSN renders the keyword/value form understood by pgx and lib/pq.
func (c DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s port=%d sslmode=%s",
		c.Host, c.User, c.Name, c.Port, c.SSLMode)
	if c.Password != "" {
		dsn += fmt.Sprintf(" password=%s", c.Password)
	}
	return dsn
}

// URL renders a postgres:// connection URL.
func (c DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	return u.String()
}

// Redacted is DSN without the password, for log lines.
func (c DatabaseConfig) Redacted() string {
	return fmt.Sprintf("host=%s dbname=%s port=%d", c.Host, c.Name, c.Port)
}
