package handlers

import (
	"context"

	"github.com/simplecom/checkout/internal/models"
	"github.com/simplecom/checkout/internal/services"
)

// MockPaymentService is a mock implementation of PaymentService for testing
type MockPaymentService struct {
	CreatePaymentIntentFunc func(context.Context, string) (*services.PaymentIntentResult, error)
	VerifyPaymentFunc       func(context.Context, string) (*services.PaymentVerificationResult, error)
}

func (m *MockPaymentService) CreatePaymentIntent(ctx context.Context, idempotencyKey string) (*services.PaymentIntentResult, error) {
	if m.CreatePaymentIntentFunc != nil {
		return m.CreatePaymentIntentFunc(ctx, idempotencyKey)
	}
	return &services.PaymentIntentResult{
		IntentID:     "pi_123",
		ClientSecret: "pi_123_secret_abc",
		Amount:       100,
		Currency:     "usd",
		Reference:    "PAY-123",
	}, nil
}

func (m *MockPaymentService) VerifyPayment(ctx context.Context, intentID string) (*services.PaymentVerificationResult, error) {
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, intentID)
	}
	return &services.PaymentVerificationResult{
		Payment: &models.Payment{
			Reference: "PAY-123",
			IntentID:  intentID,
			Amount:    100,
			Currency:  "usd",
			Status:    models.PaymentStatusSucceeded,
		},
		IntentStatus: "succeeded",
	}, nil
}
