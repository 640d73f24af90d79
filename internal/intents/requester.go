// Package intents fetches payment intent client secrets from the backend.
package intents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/simplecom/checkout/internal/breaker"
)

var (
	// ErrIntentUnavailable covers transport failures and non-2xx responses.
	ErrIntentUnavailable = errors.New("payment intent endpoint unavailable")
	// ErrMalformedIntent is returned when the response carries no usable secret.
	ErrMalformedIntent = errors.New("malformed payment intent response")
)

type intentResponse struct {
	ClientSecret string `json:"client_secret"`
}

// HTTPRequester asks the backend endpoint to create a payment intent
type HTTPRequester struct {
	endpoint string
	http     *resty.Client
	breaker  *gobreaker.CircuitBreaker[[]byte]
	logger   *zap.Logger
}

// NewHTTPRequester creates a requester posting to endpoint
func NewHTTPRequester(endpoint string, logger *zap.Logger) *HTTPRequester {
	return &HTTPRequester{
		endpoint: endpoint,
		http: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("Accept", "application/json"),
		breaker: breaker.New[[]byte]("payment-intents", logger),
		logger:  logger,
	}
}

// RequestIntent creates a payment intent and returns its client secret. Each
// call carries a fresh idempotency key.
func (r *HTTPRequester) RequestIntent(ctx context.Context) (string, error) {
	idempotencyKey := uuid.NewString()

	body, err := r.breaker.Execute(func() ([]byte, error) {
		resp, err := r.http.R().
			SetContext(ctx).
			SetHeader("Idempotency-Key", idempotencyKey).
			Post(r.endpoint)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIntentUnavailable, err)
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("%w: status %d: %s", ErrIntentUnavailable, resp.StatusCode(), resp.String())
		}
		return resp.Body(), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrIntentUnavailable, err)
		}
		return "", err
	}

	var parsed intentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedIntent, err)
	}
	if parsed.ClientSecret == "" {
		return "", fmt.Errorf("%w: client_secret missing", ErrMalformedIntent)
	}

	r.logger.Debug("payment intent requested", zap.String("idempotency_key", idempotencyKey))
	return parsed.ClientSecret, nil
}
