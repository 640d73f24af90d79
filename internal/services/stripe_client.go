package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// StripeClient handles server-side communication with Stripe
type StripeClient interface {
	CreatePaymentIntent(ctx context.Context, req *IntentRequest) (*Intent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*Intent, error)
}

// IntentRequest describes the payment intent to create
type IntentRequest struct {
	Amount         int64
	Currency       string
	Reference      string
	IdempotencyKey string
}

// Intent is the subset of a Stripe payment intent the shop uses
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	LastError    string
}

// SDKStripeClient implements StripeClient with stripe-go using the secret key
type SDKStripeClient struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeClient creates a Stripe API client. A nil backends value uses the
// default Stripe endpoints.
func NewStripeClient(secretKey string, backends *stripe.Backends, logger *zap.Logger) StripeClient {
	return &SDKStripeClient{
		api:    client.New(secretKey, backends),
		logger: logger,
	}
}

// CreatePaymentIntent creates a payment intent with automatic payment methods
func (c *SDKStripeClient) CreatePaymentIntent(ctx context.Context, req *IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("reference", req.Reference)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	c.logger.Info("stripe payment intent created",
		zap.String("intent", pi.ID),
		zap.String("reference", req.Reference),
	)

	return toIntent(pi), nil
}

// GetPaymentIntent retrieves a payment intent by id
func (c *SDKStripeClient) GetPaymentIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent %s: %w", intentID, err)
	}

	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
	if pi.LastPaymentError != nil {
		intent.LastError = pi.LastPaymentError.Msg
	}
	return intent
}
