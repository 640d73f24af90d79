package provider

import (
	"context"
	"net/url"
	"strings"
)

// Form fields posted by the checkout page script.
const (
	FieldMounted       = "element_mounted"
	FieldPaymentMethod = "payment_method"
	FieldErrorType     = "element_error_type"
	FieldErrorCode     = "element_error_code"
	FieldErrorMessage  = "element_error"
)

const incompleteMessage = "Your payment details are incomplete."

// WidgetPayload is what the hosted Payment Element produced in the browser:
// the payment method it collected, or the validation error it reported.
type WidgetPayload struct {
	Mounted       bool
	PaymentMethod string
	Err           *Error
}

// ParseWidgetPayload reads the widget outcome from submitted form values.
func ParseWidgetPayload(values url.Values) WidgetPayload {
	payload := WidgetPayload{
		Mounted:       values.Get(FieldMounted) == "true",
		PaymentMethod: strings.TrimSpace(values.Get(FieldPaymentMethod)),
	}

	if msg := strings.TrimSpace(values.Get(FieldErrorMessage)); msg != "" {
		errType := values.Get(FieldErrorType)
		if errType == "" {
			errType = "validation_error"
		}
		payload.Err = &Error{
			Type:    errType,
			Code:    values.Get(FieldErrorCode),
			Message: msg,
		}
	}

	return payload
}

// Elements is the hosted UI handle for one submission.
type Elements struct {
	options Options
	payload WidgetPayload
}

// Submit reports the widget's own validation result. A widget that reported
// no error but produced no payment method is treated as incomplete.
func (e *Elements) Submit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.payload.Err != nil {
		return e.payload.Err
	}
	if !strings.HasPrefix(e.payload.PaymentMethod, "pm_") {
		return &Error{Type: "validation_error", Code: "incomplete", Message: incompleteMessage}
	}
	return nil
}

// PaymentMethod returns the collected payment method id.
func (e *Elements) PaymentMethod() string {
	return e.payload.PaymentMethod
}

// Options returns the options the element was rendered with.
func (e *Elements) Options() Options {
	return e.options
}
