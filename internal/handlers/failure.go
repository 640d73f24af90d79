package handlers

import (
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

// FailureHandler handles payment failure page
type FailureHandler struct {
	template *template.Template
	logger   *zap.Logger
}

// NewFailureHandler creates a new failure handler
func NewFailureHandler(templatePath string, logger *zap.Logger) (*FailureHandler, error) {
	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &FailureHandler{
		template: tmpl,
		logger:   logger,
	}, nil
}

// FailureData represents the data for the failure template
type FailureData struct {
	Reference string
	Reason    string
	Message   string
}

// ServeHTTP handles the failure page request
func (h *FailureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reason := r.URL.Query().Get("reason")
	data := FailureData{
		Reference: r.URL.Query().Get("reference"),
		Reason:    reason,
		Message:   getFailureMessage(reason),
	}

	if err := h.template.Execute(w, data); err != nil {
		h.logger.Error("error rendering template", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// getFailureMessage returns a user-friendly message for a payment intent status
func getFailureMessage(reason string) string {
	switch reason {
	case "requires_payment_method":
		return "Your payment was declined. Please check your payment details and try again."
	case "canceled":
		return "The payment was cancelled. You can try again when you're ready."
	case "requires_action":
		return "The payment was not authorised. Please try again and complete the authorisation step."
	default:
		return "We couldn't process your payment. Please try again or contact support."
	}
}
