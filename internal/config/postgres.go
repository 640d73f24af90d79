package config

import (
	"fmt"
)

// PostgresConfig holds the connection settings for the payments database
type PostgresConfig struct {
	User     string `validate:"required"`
	Password string `validate:"required"`
	Database string `validate:"required"`
	Host     string `validate:"required"`
	Port     string `validate:"numeric"`
	SSLMode  string `validate:"oneof=disable require verify-ca verify-full"`
}

// LoadPostgresConfig loads PostgreSQL configuration from environment variables
func LoadPostgresConfig(getenv func(string) string) (*PostgresConfig, error) {
	cfg := &PostgresConfig{
		User:     getenv("POSTGRES_USER"),
		Password: getenv("POSTGRES_PASSWORD"),
		Database: getenv("POSTGRES_DB"),
		Host:     getenv("POSTGRES_HOSTNAME"),
		Port:     getenv("POSTGRES_PORT"),
		SSLMode:  getenv("POSTGRES_SSLMODE"),
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	for env, value := range map[string]string{
		"POSTGRES_USER":     cfg.User,
		"POSTGRES_PASSWORD": cfg.Password,
		"POSTGRES_DB":       cfg.Database,
		"POSTGRES_HOSTNAME": cfg.Host,
	} {
		if value == "" {
			return nil, fmt.Errorf("%s is required", env)
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid postgres configuration: %w", err)
	}

	return cfg, nil
}

// ConnectionString returns a lib/pq keyword/value connection string
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}
