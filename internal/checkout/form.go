// Package checkout drives one checkout form: it validates the hosted payment
// widget, asks the backend for a payment intent and confirms it with the
// payment provider.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/simplecom/checkout/internal/provider"
)

// ErrSubmissionInFlight is returned when an attempt is already running for the form.
var ErrSubmissionInFlight = errors.New("a payment submission is already in progress")

// Messages shown when a stage fails without a provider supplied message.
const (
	MessageValidationFailed   = "We couldn't check your payment details. Please try again."
	MessageIntentUnavailable  = "We couldn't start your payment. Please try again."
	MessageConfirmationFailed = "We couldn't confirm your payment. Please try again."
)

// ClientSource exposes the provider client once it has been built
type ClientSource interface {
	Client() (provider.Client, bool)
}

// Elements is the hosted payment widget handle
type Elements interface {
	Submit(ctx context.Context) error
	PaymentMethod() string
}

// IntentRequester obtains a payment intent client secret from the backend
type IntentRequester interface {
	RequestIntent(ctx context.Context) (string, error)
}

// Guard provides mutual exclusion between attempts on the same form across
// requests and processes. Acquire returns a token identifying the holder;
// Release only drops the lock while that token still holds it.
type Guard interface {
	Acquire(ctx context.Context, key string) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}

// Recorder observes how attempts end
type Recorder interface {
	ObserveSubmission(state State)
}

// Dependencies wires a Form. Elements may be nil while the widget is not ready.
type Dependencies struct {
	ID        string
	Provider  ClientSource
	Elements  Elements
	Intents   IntentRequester
	Guard     Guard
	Recorder  Recorder
	ReturnURL string
	Logger    *zap.Logger
}

// Outcome is the result of one Submit call
type Outcome struct {
	State       State
	Aborted     bool
	RedirectURL string
}

// Snapshot is the persisted part of a form
type Snapshot struct {
	State        State   `json:"state"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// Form is the checkout form controller
type Form struct {
	deps Dependencies

	mu           sync.Mutex
	state        State
	errorMessage *string
}

// NewForm creates an idle form
func NewForm(deps Dependencies) *Form {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Form{deps: deps, state: StateIdle}
}

// Restore loads persisted state. An attempt that was in flight when the
// snapshot was taken never finished, so it is restored as idle.
func (f *Form) Restore(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = s.State
	if f.state.InFlight() {
		f.state = StateIdle
	}
	f.errorMessage = s.ErrorMessage
}

// Snapshot returns the state to persist
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{State: f.state, ErrorMessage: f.errorMessage}
}

// State returns the current state
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// ErrorMessage returns the message to display, if any
func (f *Form) ErrorMessage() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errorMessage == nil {
		return "", false
	}
	return *f.errorMessage, true
}

// CanSubmit reports whether both the provider client and the widget are ready
func (f *Form) CanSubmit() bool {
	if f.deps.Provider == nil || f.deps.Elements == nil {
		return false
	}
	_, ok := f.deps.Provider.Client()
	return ok
}

// Submit runs one attempt: validate the widget, request an intent, confirm.
// When the widget or client is not ready it returns an aborted outcome and
// changes nothing.
func (f *Form) Submit(ctx context.Context) (Outcome, error) {
	if !f.CanSubmit() {
		return Outcome{State: f.State(), Aborted: true}, nil
	}
	client, _ := f.deps.Provider.Client()

	token, err := f.begin(ctx)
	if err != nil {
		return Outcome{State: f.State()}, err
	}
	defer f.release(token)

	at := &attempt{client: client}
	stages := []struct {
		state State
		run   func(context.Context, *attempt) error
		fail  string
	}{
		{StateValidating, f.validate, MessageValidationFailed},
		{StateRequestingIntent, f.requestIntent, MessageIntentUnavailable},
		{StateConfirming, f.confirm, MessageConfirmationFailed},
	}

	for _, stage := range stages {
		f.setState(stage.state)
		if err := stage.run(ctx, at); err != nil {
			msg := displayMessage(err, stage.fail)
			f.deps.Logger.Info("checkout attempt failed",
				zap.String("form", f.deps.ID),
				zap.Stringer("stage", stage.state),
				zap.Error(err),
			)
			f.finish(StateErrorShown, &msg)
			return Outcome{State: StateErrorShown}, nil
		}
	}

	f.finish(StateRedirected, nil)
	f.deps.Logger.Info("checkout attempt confirmed",
		zap.String("form", f.deps.ID),
		zap.String("intent", at.confirmation.IntentID),
		zap.String("status", at.confirmation.Status),
	)
	return Outcome{State: StateRedirected, RedirectURL: at.confirmation.RedirectURL}, nil
}

type attempt struct {
	client       provider.Client
	clientSecret string
	confirmation *provider.Confirmation
}

func (f *Form) validate(ctx context.Context, _ *attempt) error {
	return f.deps.Elements.Submit(ctx)
}

func (f *Form) requestIntent(ctx context.Context, a *attempt) error {
	secret, err := f.deps.Intents.RequestIntent(ctx)
	if err != nil {
		return fmt.Errorf("request payment intent: %w", err)
	}
	a.clientSecret = secret
	return nil
}

func (f *Form) confirm(ctx context.Context, a *attempt) error {
	confirmation, err := a.client.ConfirmPayment(ctx, provider.ConfirmParams{
		ClientSecret:  a.clientSecret,
		PaymentMethod: f.deps.Elements.PaymentMethod(),
		ReturnURL:     f.deps.ReturnURL,
	})
	if err != nil {
		return err
	}
	a.confirmation = confirmation
	return nil
}

// begin moves an idle form into its first stage, taking the guard.
func (f *Form) begin(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.InFlight() {
		return "", ErrSubmissionInFlight
	}

	var token string
	if f.deps.Guard != nil {
		t, acquired, err := f.deps.Guard.Acquire(ctx, f.deps.ID)
		if err != nil {
			return "", fmt.Errorf("acquire submission guard: %w", err)
		}
		if !acquired {
			return "", ErrSubmissionInFlight
		}
		token = t
	}

	f.state = StateValidating
	f.errorMessage = nil
	return token, nil
}

func (f *Form) release(token string) {
	if f.deps.Guard == nil {
		return
	}
	// the attempt context may already be cancelled
	if err := f.deps.Guard.Release(context.Background(), f.deps.ID, token); err != nil {
		f.deps.Logger.Warn("failed to release submission guard", zap.String("form", f.deps.ID), zap.Error(err))
	}
}

func (f *Form) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Form) finish(s State, msg *string) {
	f.mu.Lock()
	f.state = s
	f.errorMessage = msg
	f.mu.Unlock()

	if f.deps.Recorder != nil {
		f.deps.Recorder.ObserveSubmission(s)
	}
}

// displayMessage returns the provider's own message when there is one.
func displayMessage(err error, fallback string) string {
	var perr *provider.Error
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return fallback
}
