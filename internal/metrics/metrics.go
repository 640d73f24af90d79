package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simplecom/checkout/internal/checkout"
)

// Metrics holds the checkout counters and the registry they live in
type Metrics struct {
	registry       *prometheus.Registry
	submissions    *prometheus.CounterVec
	intentsCreated *prometheus.CounterVec
}

// New registers the checkout counters on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_submissions_total",
				Help: "Checkout form submissions by final state",
			},
			[]string{"state"},
		),
		intentsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_payment_intents_total",
				Help: "Payment intent creation requests by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.submissions,
		m.intentsCreated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveSubmission counts a finished checkout attempt
func (m *Metrics) ObserveSubmission(state checkout.State) {
	m.submissions.WithLabelValues(state.String()).Inc()
}

// ObserveIntent counts a payment intent creation
func (m *Metrics) ObserveIntent(err error) {
	result := "created"
	if err != nil {
		result = "error"
	}
	m.intentsCreated.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
