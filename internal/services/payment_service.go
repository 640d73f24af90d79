package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/simplecom/checkout/internal/models"
	"github.com/simplecom/checkout/internal/repository"
)

// PaymentRepository defines the persistence the payment service needs
type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	GetPaymentByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)
	AttachIntent(ctx context.Context, reference, intentID string) error
	UpdatePaymentStatus(ctx context.Context, reference string, status models.PaymentStatus) error
}

// PaymentService handles payment-related business logic
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, idempotencyKey string) (*PaymentIntentResult, error)
	VerifyPayment(ctx context.Context, intentID string) (*PaymentVerificationResult, error)
}

// PaymentServiceImpl implements PaymentService
type PaymentServiceImpl struct {
	stripe   StripeClient
	payments PaymentRepository
	amount   int64
	currency string
	logger   *zap.Logger
}

// NewPaymentService creates a payment service charging a fixed amount
func NewPaymentService(stripe StripeClient, payments PaymentRepository, amount int64, currency string, logger *zap.Logger) PaymentService {
	return &PaymentServiceImpl{
		stripe:   stripe,
		payments: payments,
		amount:   amount,
		currency: currency,
		logger:   logger,
	}
}

// PaymentIntentResult is what the browser needs to confirm a payment
type PaymentIntentResult struct {
	IntentID     string
	ClientSecret string
	Amount       int64
	Currency     string
	Reference    string
}

// PaymentVerificationResult represents the result of verifying a payment
type PaymentVerificationResult struct {
	Payment      *models.Payment
	IntentStatus string
	LastError    string
}

// CreatePaymentIntent records a pending payment and creates its Stripe
// payment intent. Repeating an idempotency key returns the same intent.
func (s *PaymentServiceImpl) CreatePaymentIntent(ctx context.Context, idempotencyKey string) (*PaymentIntentResult, error) {
	payment, err := s.paymentForKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}

	intent, err := s.stripe.CreatePaymentIntent(ctx, &IntentRequest{
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		Reference:      payment.Reference,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Stripe payment intent: %w", err)
	}

	if payment.IntentID == "" {
		if err := payment.AttachIntent(intent.ID); err != nil {
			return nil, err
		}
		if err := s.payments.AttachIntent(ctx, payment.Reference, intent.ID); err != nil {
			return nil, fmt.Errorf("failed to store payment intent: %w", err)
		}
	}

	s.logger.Info("payment intent ready",
		zap.String("reference", payment.Reference),
		zap.String("intent", intent.ID),
	)

	return &PaymentIntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
		Reference:    payment.Reference,
	}, nil
}

// paymentForKey returns the payment already created for the key, or a new one.
func (s *PaymentServiceImpl) paymentForKey(ctx context.Context, idempotencyKey string) (*models.Payment, error) {
	if idempotencyKey != "" {
		existing, err := s.payments.GetPaymentByIdempotencyKey(ctx, idempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
		}
	}

	payment, err := models.NewPayment(s.amount, s.currency)
	if err != nil {
		return nil, fmt.Errorf("invalid payment: %w", err)
	}
	payment.IdempotencyKey = idempotencyKey

	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	return payment, nil
}

// VerifyPayment fetches the intent from Stripe and records its status
func (s *PaymentServiceImpl) VerifyPayment(ctx context.Context, intentID string) (*PaymentVerificationResult, error) {
	intent, err := s.stripe.GetPaymentIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	payment, err := s.payments.GetPaymentByIntentID(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	status := models.StatusFromIntent(intent.Status)
	s.logger.Info("payment intent verified",
		zap.String("reference", payment.Reference),
		zap.String("intent_status", intent.Status),
		zap.String("payment_status", string(status)),
	)

	if err := payment.Transition(status); err != nil {
		s.logger.Warn("ignoring payment status change", zap.String("reference", payment.Reference), zap.Error(err))
	} else if err := s.payments.UpdatePaymentStatus(ctx, payment.Reference, payment.Status); err != nil {
		// the customer still gets an answer from the intent itself
		s.logger.Warn("failed to update payment status", zap.String("reference", payment.Reference), zap.Error(err))
	}

	return &PaymentVerificationResult{
		Payment:      payment,
		IntentStatus: intent.Status,
		LastError:    intent.LastError,
	}, nil
}
