package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	cfg, err := LoadServerConfig(envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())
}

func TestLoadServerConfig_InvalidEnv(t *testing.T) {
	_, err := LoadServerConfig(envFrom(map[string]string{"APP_ENV": "staging"}))
	assert.Error(t, err)
}

func TestLoadStripeConfig(t *testing.T) {
	server := ServerConfig{Port: "9090", BaseURL: "http://shop.test:9090/", Env: "development"}

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, cfg *StripeConfig)
	}{
		{
			name: "defaults derived from base url",
			env: map[string]string{
				"STRIPE_PUBLISHABLE_KEY": "pk_test_123",
				"STRIPE_SECRET_KEY":      "sk_test_456",
			},
			check: func(t *testing.T, cfg *StripeConfig) {
				assert.Equal(t, int64(100), cfg.Amount)
				assert.Equal(t, "usd", cfg.Currency)
				assert.Equal(t, "http://shop.test:9090/api/payment_intents", cfg.PaymentIntentURL)
				assert.Equal(t, "http://shop.test:9090/payment/complete", cfg.ReturnURL)
				assert.Equal(t, "https://api.stripe.com", cfg.APIBase)
			},
		},
		{
			name: "explicit amount and currency",
			env: map[string]string{
				"STRIPE_PUBLISHABLE_KEY": "pk_test_123",
				"STRIPE_SECRET_KEY":      "sk_test_456",
				"PAYMENT_AMOUNT":         "2500",
				"PAYMENT_CURRENCY":       "EUR",
				"PAYMENT_RETURN_URL":     "https://shop.example/done",
			},
			check: func(t *testing.T, cfg *StripeConfig) {
				assert.Equal(t, int64(2500), cfg.Amount)
				assert.Equal(t, "eur", cfg.Currency)
				assert.Equal(t, "https://shop.example/done", cfg.ReturnURL)
			},
		},
		{
			name:    "missing publishable key",
			env:     map[string]string{"STRIPE_SECRET_KEY": "sk_test_456"},
			wantErr: "STRIPE_PUBLISHABLE_KEY is required",
		},
		{
			name:    "missing secret key",
			env:     map[string]string{"STRIPE_PUBLISHABLE_KEY": "pk_test_123"},
			wantErr: "STRIPE_SECRET_KEY is required",
		},
		{
			name: "secret key in publishable slot",
			env: map[string]string{
				"STRIPE_PUBLISHABLE_KEY": "sk_test_123",
				"STRIPE_SECRET_KEY":      "sk_test_456",
			},
			wantErr: "invalid stripe configuration",
		},
		{
			name: "non numeric amount",
			env: map[string]string{
				"STRIPE_PUBLISHABLE_KEY": "pk_test_123",
				"STRIPE_SECRET_KEY":      "sk_test_456",
				"PAYMENT_AMOUNT":         "1.00",
			},
			wantErr: "PAYMENT_AMOUNT",
		},
		{
			name: "zero amount",
			env: map[string]string{
				"STRIPE_PUBLISHABLE_KEY": "pk_test_123",
				"STRIPE_SECRET_KEY":      "sk_test_456",
				"PAYMENT_AMOUNT":         "0",
			},
			wantErr: "invalid stripe configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadStripeConfig(envFrom(tt.env), server)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadPostgresConfig(t *testing.T) {
	cfg, err := LoadPostgresConfig(envFrom(map[string]string{
		"POSTGRES_USER":     "app",
		"POSTGRES_PASSWORD": "secret",
		"POSTGRES_DB":       "payments",
		"POSTGRES_HOSTNAME": "db",
	}))
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=payments sslmode=disable", cfg.ConnectionString())

	_, err = LoadPostgresConfig(envFrom(map[string]string{"POSTGRES_USER": "app"}))
	assert.Error(t, err)
}

func TestLoadRedisConfig(t *testing.T) {
	cfg, err := LoadRedisConfig(envFrom(nil))
	require.NoError(t, err)
	assert.False(t, cfg.Enabled())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)

	cfg, err = LoadRedisConfig(envFrom(map[string]string{
		"REDIS_ADDR":           "localhost:6379",
		"REDIS_DB":             "2",
		"CHECKOUT_SESSION_TTL": "5m",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.Enabled())
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)

	_, err = LoadRedisConfig(envFrom(map[string]string{"REDIS_DB": "x"}))
	assert.Error(t, err)
}
