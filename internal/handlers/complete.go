package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/simplecom/checkout/internal/models"
	"github.com/simplecom/checkout/internal/services"
)

// CompleteHandler handles the page Stripe returns the customer to
type CompleteHandler struct {
	template       *template.Template
	paymentService services.PaymentService
	logger         *zap.Logger
}

// NewCompleteHandler creates a new completion handler
func NewCompleteHandler(templatePath string, paymentService services.PaymentService, logger *zap.Logger) (*CompleteHandler, error) {
	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &CompleteHandler{
		template:       tmpl,
		paymentService: paymentService,
		logger:         logger,
	}, nil
}

// CompleteData represents the data for the completion template
type CompleteData struct {
	Payment *models.Payment
	Title   string
	Message string
}

// ServeHTTP verifies the returned payment intent and renders its result
func (h *CompleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	intentID := r.URL.Query().Get("payment_intent")
	if intentID == "" {
		http.Error(w, "Missing payment intent", http.StatusBadRequest)
		return
	}

	h.logger.Info("customer returned from payment",
		zap.String("intent", intentID),
		zap.String("redirect_status", r.URL.Query().Get("redirect_status")),
	)

	result, err := h.paymentService.VerifyPayment(r.Context(), intentID)
	if err != nil {
		h.logger.Error("error verifying payment", zap.String("intent", intentID), zap.Error(err))
		http.Error(w, "Failed to verify payment", http.StatusInternalServerError)
		return
	}

	data := CompleteData{Payment: result.Payment}
	switch result.Payment.Status {
	case models.PaymentStatusSucceeded:
		data.Title = "Successful"
		data.Message = "Thank you! Your payment has been received."
	case models.PaymentStatusProcessing:
		data.Title = "Processing"
		data.Message = "Your payment is processing. We'll update you when it is complete."
	default:
		failureURL := fmt.Sprintf("/payment/failed?reference=%s&reason=%s",
			url.QueryEscape(result.Payment.Reference), url.QueryEscape(result.IntentStatus))
		http.Redirect(w, r, failureURL, http.StatusSeeOther)
		return
	}

	if err := h.template.Execute(w, data); err != nil {
		h.logger.Error("error rendering template", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
