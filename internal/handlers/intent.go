package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/simplecom/checkout/internal/services"
)

// IntentRecorder observes payment intent creation
type IntentRecorder interface {
	ObserveIntent(err error)
}

// IntentHandler is the backend endpoint that creates payment intents
type IntentHandler struct {
	paymentService services.PaymentService
	recorder       IntentRecorder
	logger         *zap.Logger
}

// NewIntentHandler creates a new payment intent handler
func NewIntentHandler(paymentService services.PaymentService, recorder IntentRecorder, logger *zap.Logger) *IntentHandler {
	return &IntentHandler{
		paymentService: paymentService,
		recorder:       recorder,
		logger:         logger,
	}
}

// IntentResponse is returned to the checkout form
type IntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ServeHTTP handles the payment intent creation request
func (h *IntentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		sendErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.paymentService.CreatePaymentIntent(r.Context(), r.Header.Get("Idempotency-Key"))
	if h.recorder != nil {
		h.recorder.ObserveIntent(err)
	}
	if err != nil {
		h.logger.Error("error creating payment intent", zap.Error(err))
		sendErrorResponse(w, "Failed to create payment intent", http.StatusInternalServerError)
		return
	}

	h.logger.Info("payment intent created",
		zap.String("intent", result.IntentID),
		zap.String("reference", result.Reference),
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(IntentResponse{
		ID:           result.IntentID,
		ClientSecret: result.ClientSecret,
		Amount:       result.Amount,
		Currency:     result.Currency,
	}); err != nil {
		h.logger.Warn("error encoding response", zap.Error(err))
	}
}

// sendErrorResponse sends a JSON error response
func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
