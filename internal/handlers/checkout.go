package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simplecom/checkout/internal/checkout"
	"github.com/simplecom/checkout/internal/models"
	"github.com/simplecom/checkout/internal/provider"
	"github.com/simplecom/checkout/internal/session"
)

// SessionCookie names the cookie that identifies a browser's checkout form
const SessionCookie = "checkout_session"

// PaymentProvider is the provider context the checkout page renders against
type PaymentProvider interface {
	checkout.ClientSource
	Elements(payload provider.WidgetPayload) (*provider.Elements, bool)
	PublishableKey() string
	Options() provider.Options
}

// CheckoutDependencies wires a CheckoutHandler
type CheckoutDependencies struct {
	Provider  PaymentProvider
	Intents   checkout.IntentRequester
	Store     session.Store
	Guard     checkout.Guard
	Recorder  checkout.Recorder
	ReturnURL string
	Secure    bool
	Logger    *zap.Logger
}

// CheckoutHandler renders the checkout form and handles its submission
type CheckoutHandler struct {
	template *template.Template
	deps     CheckoutDependencies
}

// CheckoutFields are the names of the fields the page script posts
type CheckoutFields struct {
	Mounted       string
	PaymentMethod string
	ErrorType     string
	ErrorCode     string
	ErrorMessage  string
}

// CheckoutData represents the data passed to the checkout template
type CheckoutData struct {
	PublishableKey string
	Options        provider.Options
	Amount         string
	ClientReady    bool
	ErrorMessage   string
	Fields         CheckoutFields
}

var checkoutFields = CheckoutFields{
	Mounted:       provider.FieldMounted,
	PaymentMethod: provider.FieldPaymentMethod,
	ErrorType:     provider.FieldErrorType,
	ErrorCode:     provider.FieldErrorCode,
	ErrorMessage:  provider.FieldErrorMessage,
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(templatePath string, deps CheckoutDependencies) (*CheckoutHandler, error) {
	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &CheckoutHandler{
		template: tmpl,
		deps:     deps,
	}, nil
}

// ServeHTTP renders the form on GET and submits it on POST
func (h *CheckoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.show(w, r)
	case http.MethodPost:
		h.submit(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// show remounts the form: a page load starts idle with no error, whatever the
// session's last attempt left behind.
func (h *CheckoutHandler) show(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(w, r)
	form := h.newForm(id, nil)
	h.reset(r, id, form)
	h.render(w, form)
}

func (h *CheckoutHandler) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	id := h.sessionID(w, r)
	payload := provider.ParseWidgetPayload(r.PostForm)

	var elements checkout.Elements
	if handle, ok := h.deps.Provider.Elements(payload); ok {
		elements = handle
	}

	form := h.newForm(id, elements)
	h.restore(r, id, form)

	outcome, err := form.Submit(r.Context())
	if errors.Is(err, checkout.ErrSubmissionInFlight) {
		http.Error(w, "A payment is already being processed", http.StatusConflict)
		return
	}
	if err != nil {
		h.deps.Logger.Error("checkout submission failed", zap.String("session", id), zap.Error(err))
		http.Error(w, "Failed to process payment", http.StatusInternalServerError)
		return
	}

	if !outcome.Aborted {
		if err := h.deps.Store.Save(r.Context(), id, form.Snapshot()); err != nil {
			h.deps.Logger.Warn("failed to save checkout session", zap.String("session", id), zap.Error(err))
		}
	}

	if outcome.State == checkout.StateRedirected {
		http.Redirect(w, r, outcome.RedirectURL, http.StatusSeeOther)
		return
	}

	h.render(w, form)
}

func (h *CheckoutHandler) newForm(id string, elements checkout.Elements) *checkout.Form {
	return checkout.NewForm(checkout.Dependencies{
		ID:        id,
		Provider:  h.deps.Provider,
		Elements:  elements,
		Intents:   h.deps.Intents,
		Guard:     h.deps.Guard,
		Recorder:  h.deps.Recorder,
		ReturnURL: h.deps.ReturnURL,
		Logger:    h.deps.Logger,
	})
}

func (h *CheckoutHandler) restore(r *http.Request, id string, form *checkout.Form) {
	snapshot, err := h.deps.Store.Load(r.Context(), id)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			h.deps.Logger.Warn("failed to load checkout session", zap.String("session", id), zap.Error(err))
		}
		return
	}
	form.Restore(snapshot)
}

// reset overwrites a stored snapshot with the fresh form so later requests in
// the session do not bring the old error back.
func (h *CheckoutHandler) reset(r *http.Request, id string, form *checkout.Form) {
	if _, err := h.deps.Store.Load(r.Context(), id); err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			h.deps.Logger.Warn("failed to load checkout session", zap.String("session", id), zap.Error(err))
		}
		return
	}
	if err := h.deps.Store.Save(r.Context(), id, form.Snapshot()); err != nil {
		h.deps.Logger.Warn("failed to reset checkout session", zap.String("session", id), zap.Error(err))
	}
}

func (h *CheckoutHandler) render(w http.ResponseWriter, form *checkout.Form) {
	_, clientReady := h.deps.Provider.Client()
	message, _ := form.ErrorMessage()
	options := h.deps.Provider.Options()

	data := CheckoutData{
		PublishableKey: h.deps.Provider.PublishableKey(),
		Options:        options,
		Amount:         models.FormatAmount(options.Amount, options.Currency),
		ClientReady:    clientReady,
		ErrorMessage:   message,
		Fields:         checkoutFields,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.template.Execute(w, data); err != nil {
		h.deps.Logger.Error("error rendering checkout template", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// sessionID returns the checkout session id, issuing a cookie for new visitors.
func (h *CheckoutHandler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.deps.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
