package config

import (
	"fmt"
	"strconv"
	"time"
)

// RedisConfig holds configuration for the checkout session store.
// An empty Addr selects the in-memory store.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

// LoadRedisConfig loads Redis configuration from environment variables
func LoadRedisConfig(getenv func(string) string) (*RedisConfig, error) {
	cfg := &RedisConfig{
		Addr:       getenv("REDIS_ADDR"),
		Password:   getenv("REDIS_PASSWORD"),
		SessionTTL: 30 * time.Minute,
	}

	if raw := getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
		}
		cfg.DB = db
	}
	if raw := getenv("CHECKOUT_SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("CHECKOUT_SESSION_TTL must be a duration: %w", err)
		}
		cfg.SessionTTL = ttl
	}

	return cfg, nil
}

// Enabled reports whether a Redis server is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}
