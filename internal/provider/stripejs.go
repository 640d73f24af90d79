package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/simplecom/checkout/internal/breaker"
)

var errProviderUnavailable = errors.New("payment provider unavailable")

const unsupportedActionMessage = "This payment method needs an extra step that this checkout does not support."

// StripeJSClient performs the client-side Stripe calls the browser library
// would make, authenticated with the publishable key.
type StripeJSClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker[*resty.Response]
	logger  *zap.Logger
}

// NewStripeJSLoader returns a Loader building StripeJSClients against apiBase.
func NewStripeJSLoader(apiBase string, logger *zap.Logger) Loader {
	return func(ctx context.Context, publishableKey string) (Client, error) {
		if !strings.HasPrefix(publishableKey, "pk_") {
			return nil, fmt.Errorf("invalid publishable key")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewStripeJSClient(apiBase, publishableKey, logger), nil
	}
}

// NewStripeJSClient creates a client for the Stripe API at apiBase.
func NewStripeJSClient(apiBase, publishableKey string, logger *zap.Logger) *StripeJSClient {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(apiBase, "/")).
		SetAuthToken(publishableKey).
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json")

	return &StripeJSClient{
		http:    httpClient,
		breaker: breaker.New[*resty.Response]("stripe-confirm", logger),
		logger:  logger,
	}
}

type intentResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	NextAction *struct {
		Type          string `json:"type"`
		RedirectToURL *struct {
			URL string `json:"url"`
		} `json:"redirect_to_url"`
	} `json:"next_action"`
	LastPaymentError *Error `json:"last_payment_error"`
}

type errorEnvelope struct {
	Error *Error `json:"error"`
}

// ConfirmPayment confirms the intent identified by the client secret with the
// collected payment method. Errors reported by Stripe are returned as *Error.
func (c *StripeJSClient) ConfirmPayment(ctx context.Context, params ConfirmParams) (*Confirmation, error) {
	intentID, err := IntentIDFromSecret(params.ClientSecret)
	if err != nil {
		return nil, err
	}

	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetPathParam("intent", intentID).
			SetFormData(map[string]string{
				"client_secret":  params.ClientSecret,
				"payment_method": params.PaymentMethod,
				"return_url":     params.ReturnURL,
			}).
			SetResult(&intentResponse{}).
			SetError(&errorEnvelope{}).
			Post("/v1/payment_intents/{intent}/confirm")
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, fmt.Errorf("%w: status %d", errProviderUnavailable, resp.StatusCode())
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment intent %s: %w", intentID, err)
	}

	if resp.IsError() {
		envelope, _ := resp.Error().(*errorEnvelope)
		if envelope == nil || envelope.Error == nil {
			return nil, fmt.Errorf("confirm returned status %d: %s", resp.StatusCode(), resp.String())
		}
		c.logger.Info("payment confirmation rejected",
			zap.String("intent", intentID),
			zap.String("type", envelope.Error.Type),
			zap.String("code", envelope.Error.Code),
		)
		return nil, envelope.Error
	}

	intent, ok := resp.Result().(*intentResponse)
	if !ok || intent.ID == "" {
		return nil, fmt.Errorf("failed to parse confirm response for %s", intentID)
	}

	return c.confirmation(intent, params)
}

func (c *StripeJSClient) confirmation(intent *intentResponse, params ConfirmParams) (*Confirmation, error) {
	result := &Confirmation{IntentID: intent.ID, Status: intent.Status}

	switch intent.Status {
	case "succeeded", "processing", "requires_capture":
		result.RedirectURL = completionURL(params.ReturnURL, intent.ID, params.ClientSecret, "succeeded")
	case "requires_action":
		if intent.NextAction == nil || intent.NextAction.Type != "redirect_to_url" || intent.NextAction.RedirectToURL == nil {
			return nil, &Error{Type: "invalid_request_error", Code: "unsupported_next_action", Message: unsupportedActionMessage}
		}
		result.RedirectURL = intent.NextAction.RedirectToURL.URL
	case "requires_payment_method":
		if intent.LastPaymentError != nil && intent.LastPaymentError.Message != "" {
			return nil, intent.LastPaymentError
		}
		return nil, &Error{Type: "card_error", Code: "payment_failed", Message: "Your payment was declined. Please try another payment method."}
	default:
		return nil, fmt.Errorf("unexpected payment intent status %q", intent.Status)
	}

	return result, nil
}

// IntentIDFromSecret extracts the payment intent id from its client secret.
func IntentIDFromSecret(secret string) (string, error) {
	id, _, found := strings.Cut(secret, "_secret_")
	if !found || !strings.HasPrefix(id, "pi_") {
		return "", fmt.Errorf("malformed client secret")
	}
	return id, nil
}

// completionURL appends the query parameters Stripe adds when it redirects
// the customer back to the return URL.
func completionURL(returnURL, intentID, secret, redirectStatus string) string {
	u, err := url.Parse(returnURL)
	if err != nil {
		return returnURL
	}
	q := u.Query()
	q.Set("payment_intent", intentID)
	q.Set("payment_intent_client_secret", secret)
	q.Set("redirect_status", redirectStatus)
	u.RawQuery = q.Encode()
	return u.String()
}
