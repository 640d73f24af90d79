package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/simplecom/checkout/internal/models"
)

// ErrPaymentNotFound is returned when no payment matches the lookup
var ErrPaymentNotFound = errors.New("payment not found")

// PaymentRepository handles database operations for payments
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a payment repository on db
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, reference, COALESCE(intent_id, ''), amount, currency, status,
	COALESCE(idempotency_key, ''), created_at, updated_at`

// CreatePayment inserts a new payment
func (r *PaymentRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, reference, intent_id, amount, currency, status, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), $8, $9)
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.Reference,
		payment.IntentID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.IdempotencyKey,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	payment.CreatedAt = now
	payment.UpdatedAt = now
	return nil
}

// GetPaymentByIntentID retrieves the payment created for a payment intent
func (r *PaymentRepository) GetPaymentByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE intent_id = $1`, intentID)
}

// GetPaymentByIdempotencyKey retrieves the payment created for an idempotency key
func (r *PaymentRepository) GetPaymentByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE idempotency_key = $1`, key)
}

// GetPaymentByReference retrieves a payment by its shop reference
func (r *PaymentRepository) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, arg string) (*models.Payment, error) {
	payment := &models.Payment{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&payment.ID,
		&payment.Reference,
		&payment.IntentID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.IdempotencyKey,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return payment, nil
}

// AttachIntent stores the payment intent id of a payment
func (r *PaymentRepository) AttachIntent(ctx context.Context, reference, intentID string) error {
	return r.update(ctx, `
		UPDATE payments
		SET intent_id = $1, updated_at = $2
		WHERE reference = $3
	`, intentID, time.Now(), reference)
}

// UpdatePaymentStatus updates the status of a payment
func (r *PaymentRepository) UpdatePaymentStatus(ctx context.Context, reference string, status models.PaymentStatus) error {
	return r.update(ctx, `
		UPDATE payments
		SET status = $1, updated_at = $2
		WHERE reference = $3
	`, status, time.Now(), reference)
}

func (r *PaymentRepository) update(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}
