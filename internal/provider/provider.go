// Package provider owns the payment provider client handle and the hosted
// Payment Element configuration shared by every checkout form.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/simplecom/checkout/internal/models"
)

// ModePayment is the only Payment Element mode this shop uses.
const ModePayment = "payment"

var (
	// ErrNotReady is returned by Wait when the client could not be built.
	ErrNotReady = errors.New("payment provider client is not ready")
	// ErrInvalidMode is returned for any element mode other than payment.
	ErrInvalidMode = errors.New("payment element mode must be payment")
)

// Options configures the hosted Payment Element.
type Options struct {
	Mode     string `json:"mode"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewOptions returns payment-mode options for a fixed amount in minor units.
func NewOptions(amount int64, currency string) Options {
	return Options{
		Mode:     ModePayment,
		Amount:   amount,
		Currency: currency,
	}
}

// Validate checks the options before they are handed to the browser.
func (o Options) Validate() error {
	if o.Mode != ModePayment {
		return ErrInvalidMode
	}
	if o.Amount <= 0 {
		return models.ErrInvalidAmount
	}
	if len(o.Currency) != 3 || strings.ToLower(o.Currency) != o.Currency {
		return models.ErrInvalidCurrency
	}
	return nil
}

// Error is an error reported by the provider itself, either by the hosted
// widget during validation or by the confirmation API. Message is safe to
// show to the customer.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ConfirmParams are the arguments of a payment confirmation.
type ConfirmParams struct {
	ClientSecret  string
	PaymentMethod string
	ReturnURL     string
}

// Confirmation is the immediate result of a successful confirm call. The
// customer must be sent to RedirectURL, which is either an authorisation page
// hosted by the provider or the return URL itself.
type Confirmation struct {
	IntentID    string
	Status      string
	RedirectURL string
}

// Client is the provider client-side API, authenticated with the publishable key.
type Client interface {
	ConfirmPayment(ctx context.Context, params ConfirmParams) (*Confirmation, error)
}

// Loader builds a Client for the given publishable key.
type Loader func(ctx context.Context, publishableKey string) (Client, error)

// Context holds the lazily built provider client and the element options.
// The client is built at most once; until then Client reports not ready.
type Context struct {
	publishableKey string
	options        Options
	loader         Loader
	logger         *zap.Logger

	once   sync.Once
	done   chan struct{}
	mu     sync.RWMutex
	client Client
}

// NewContext creates a provider context. Nothing is built until Load.
func NewContext(publishableKey string, options Options, loader Loader, logger *zap.Logger) *Context {
	return &Context{
		publishableKey: publishableKey,
		options:        options,
		loader:         loader,
		logger:         logger,
		done:           make(chan struct{}),
	}
}

// Load starts building the client in the background. Calls after the first
// are no-ops. A failed build is logged and leaves the context not ready.
func (c *Context) Load(ctx context.Context) {
	c.once.Do(func() {
		go func() {
			defer close(c.done)

			client, err := c.loader(ctx, c.publishableKey)
			if err != nil {
				c.logger.Error("failed to initialise payment provider client", zap.Error(err))
				return
			}

			c.mu.Lock()
			c.client = client
			c.mu.Unlock()
			c.logger.Info("payment provider client ready")
		}()
	})
}

// Wait blocks until the build started by Load has finished.
func (c *Context) Wait(ctx context.Context) (Client, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	client, ok := c.Client()
	if !ok {
		return nil, ErrNotReady
	}
	return client, nil
}

// Client returns the provider client once it has been built.
func (c *Context) Client() (Client, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client, c.client != nil
}

// PublishableKey returns the key handed to the browser widget.
func (c *Context) PublishableKey() string {
	return c.publishableKey
}

// Options returns the element options.
func (c *Context) Options() Options {
	return c.options
}

// Elements binds what the browser widget posted to this context. The handle
// is not ready while the client is not built or the widget is not mounted.
func (c *Context) Elements(payload WidgetPayload) (*Elements, bool) {
	if _, ok := c.Client(); !ok {
		return nil, false
	}
	if !payload.Mounted {
		return nil, false
	}
	return &Elements{options: c.options, payload: payload}, true
}
