package config

import (
	"fmt"
	"time"
)

// CacheConfig points at the optional Redis instance backing the API rate limiter.
type CacheConfig struct {
	RedisHost     string        `env:"REDIS_HOST"`
	RedisPort     string        `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	DialTimeout   time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"2s"`
}

// Enabled reports whether a Redis host was configured.
func (c CacheConfig) Enabled() bool {
	return c.RedisHost != ""
}

func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
