package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus mirrors the lifecycle of a payment intent as seen by the shop
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCanceled   PaymentStatus = "canceled"
)

// Payment is the shop-side record of one payment intent
type Payment struct {
	ID             string
	Reference      string
	IntentID       string
	Amount         int64
	Currency       string
	Status         PaymentStatus
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Domain errors
var (
	ErrInvalidAmount           = errors.New("payment amount must be positive")
	ErrInvalidCurrency         = errors.New("currency code must be 3 characters")
	ErrMissingIntentID         = errors.New("payment intent id cannot be empty")
	ErrInvalidStatusTransition = errors.New("invalid payment status transition")
)

// NewPayment creates a pending payment with a fresh id and reference
func NewPayment(amount int64, currency string) (*Payment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrency
	}

	id := uuid.New()
	now := time.Now()

	return &Payment{
		ID:        id.String(),
		Reference: "PAY-" + strings.ToUpper(id.String()[:8]),
		Amount:    amount,
		Currency:  strings.ToLower(currency),
		Status:    PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AttachIntent records the provider's payment intent id
func (p *Payment) AttachIntent(intentID string) error {
	if intentID == "" {
		return ErrMissingIntentID
	}
	p.IntentID = intentID
	p.UpdatedAt = time.Now()
	return nil
}

// Transition moves the payment to the given status. Succeeded and canceled
// are final; processing may still settle either way.
func (p *Payment) Transition(status PaymentStatus) error {
	if p.Status == status {
		return nil
	}
	if p.IsFinal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, p.Status, status)
	}
	if status == PaymentStatusPending {
		return fmt.Errorf("%w: cannot return to pending from %s", ErrInvalidStatusTransition, p.Status)
	}

	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

// IsFinal returns true once the payment can no longer change
func (p *Payment) IsFinal() bool {
	return p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusCanceled
}

// FormattedAmount returns the amount in major units with the currency code
func (p *Payment) FormattedAmount() string {
	return FormatAmount(p.Amount, p.Currency)
}

// Currencies whose minor unit is not a hundredth, as Stripe counts amounts.
var (
	zeroDecimalCurrencies = map[string]bool{
		"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
		"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
		"ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true,
		"xpf": true,
	}
	threeDecimalCurrencies = map[string]bool{
		"bhd": true, "jod": true, "kwd": true, "omr": true, "tnd": true,
	}
)

// CurrencyExponent returns the number of decimal places in the currency's
// minor unit.
func CurrencyExponent(currency string) int {
	c := strings.ToLower(currency)
	switch {
	case zeroDecimalCurrencies[c]:
		return 0
	case threeDecimalCurrencies[c]:
		return 3
	default:
		return 2
	}
}

// FormatAmount renders an amount in minor units as major units with the
// currency code, e.g. 1999 usd as "19.99 USD" and 500 jpy as "500 JPY".
func FormatAmount(amount int64, currency string) string {
	code := strings.ToUpper(currency)
	exp := CurrencyExponent(currency)
	if exp == 0 {
		return fmt.Sprintf("%d %s", amount, code)
	}

	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	scale := int64(1)
	for i := 0; i < exp; i++ {
		scale *= 10
	}
	return fmt.Sprintf("%s%d.%0*d %s", sign, amount/scale, exp, amount%scale, code)
}

// StatusFromIntent maps a provider payment intent status onto a payment status
func StatusFromIntent(intentStatus string) PaymentStatus {
	switch intentStatus {
	case "succeeded":
		return PaymentStatusSucceeded
	case "processing":
		return PaymentStatusProcessing
	case "canceled":
		return PaymentStatusCanceled
	case "requires_payment_method":
		// the last attempt was declined
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}
