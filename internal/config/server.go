package config

import "fmt"

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port    string `validate:"required,numeric"`
	BaseURL string `validate:"required,url"`
	Env     string `validate:"oneof=development production"`
}

// LoadServerConfig loads server configuration from environment variables
func LoadServerConfig(getenv func(string) string) (ServerConfig, error) {
	cfg := ServerConfig{
		Port:    getenv("PORT"),
		BaseURL: getenv("BASE_URL"),
		Env:     getenv("APP_ENV"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080" // Default to port 8080
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}

	if err := validate.Struct(cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server configuration: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether the server runs with production logging.
func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}
