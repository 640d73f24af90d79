package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// StripeConfig holds the publishable/secret key pair and the fixed payment
// configuration handed to the Payment Element.
type StripeConfig struct {
	PublishableKey   string `validate:"required,startswith=pk_"`
	SecretKey        string `validate:"required,startswith=sk_"`
	Amount           int64  `validate:"gt=0"`
	Currency         string `validate:"len=3,lowercase"`
	PaymentIntentURL string `validate:"required,url"`
	ReturnURL        string `validate:"required,url"`
	APIBase          string `validate:"required,url"`
}

// LoadStripeConfig loads Stripe configuration from environment variables.
// URLs that are not set explicitly are derived from the server base URL.
func LoadStripeConfig(getenv func(string) string, server ServerConfig) (*StripeConfig, error) {
	cfg := &StripeConfig{
		PublishableKey:   getenv("STRIPE_PUBLISHABLE_KEY"),
		SecretKey:        getenv("STRIPE_SECRET_KEY"),
		Amount:           100,
		Currency:         "usd",
		PaymentIntentURL: getenv("PAYMENT_INTENT_URL"),
		ReturnURL:        getenv("PAYMENT_RETURN_URL"),
		APIBase:          getenv("STRIPE_API_BASE"),
	}

	if cfg.PublishableKey == "" {
		return nil, fmt.Errorf("STRIPE_PUBLISHABLE_KEY is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}

	if raw := getenv("PAYMENT_AMOUNT"); raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("PAYMENT_AMOUNT must be an integer in minor units: %w", err)
		}
		cfg.Amount = amount
	}
	if raw := getenv("PAYMENT_CURRENCY"); raw != "" {
		cfg.Currency = strings.ToLower(raw)
	}

	base := strings.TrimRight(server.BaseURL, "/")
	if cfg.PaymentIntentURL == "" {
		cfg.PaymentIntentURL = base + "/api/payment_intents"
	}
	if cfg.ReturnURL == "" {
		cfg.ReturnURL = base + "/payment/complete"
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.stripe.com"
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid stripe configuration: %w", err)
	}

	return cfg, nil
}
