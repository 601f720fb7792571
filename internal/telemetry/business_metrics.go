package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CheckoutMetrics holds Prometheus metrics for the cart and checkout funnel.
// A nil *CheckoutMetrics is valid and records nothing.
type CheckoutMetrics struct {
	// Cart
	CartUpdates *prometheus.CounterVec

	// Checkout funnel
	CheckoutStarted    prometheus.Counter
	CheckoutStage      *prometheus.CounterVec
	CheckoutFailed     *prometheus.CounterVec
	CheckoutRedirected prometheus.Counter
	CheckoutValue      prometheus.Histogram
	ValidationFailures *prometheus.CounterVec

	// External calls
	CatalogLatency *prometheus.HistogramVec
	PaymentLatency *prometheus.HistogramVec
}

// NewCheckoutMetrics creates and registers the checkout metrics on reg.
func NewCheckoutMetrics(namespace string, reg prometheus.Registerer) *CheckoutMetrics {
	if namespace == "" {
		namespace = "boutique"
	}

	subsystem := "checkout"
	factory := promauto.With(reg)

	return &CheckoutMetrics{
		// =======================================================================
		// Cart
		// =======================================================================
		CartUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_updates_total",
				Help:      "Total cart mutations",
			},
			[]string{"action"}, // action: add, set_quantity, remove
		),

		// =======================================================================
		// Checkout Funnel
		// =======================================================================
		CheckoutStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "started_total",
				Help:      "Total checkout attempts",
			},
		),
		CheckoutStage: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_reached_total",
				Help:      "Total checkout attempts reaching each state",
			},
			[]string{"state"},
		),
		CheckoutFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "failed_total",
				Help:      "Total failed checkout attempts by error kind",
			},
			[]string{"kind"},
		),
		CheckoutRedirected: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "redirected_total",
				Help:      "Total checkout attempts redirected to the payment page",
			},
		),
		CheckoutValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "value_cents",
				Help:      "Subtotal of checkouts sent to the payment processor",
				Buckets:   []float64{500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
			},
		),
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "violations_total",
				Help:      "Total validation violations by kind",
			},
			[]string{"kind"},
		),

		// =======================================================================
		// External API Performance
		// =======================================================================
		CatalogLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "catalog_lookup_duration_seconds",
				Help:      "Batched catalog lookup duration",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 3},
			},
			[]string{"outcome"},
		),
		PaymentLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payment_session_duration_seconds",
				Help:      "Payment processor session creation duration",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// CartUpdated counts one cart mutation.
func (m *CheckoutMetrics) CartUpdated(action string) {
	if m == nil {
		return
	}
	m.CartUpdates.WithLabelValues(action).Inc()
}

// Started counts a new checkout attempt.
func (m *CheckoutMetrics) Started() {
	if m == nil {
		return
	}
	m.CheckoutStarted.Inc()
}

// Reached counts an attempt entering state.
func (m *CheckoutMetrics) Reached(state string) {
	if m == nil {
		return
	}
	m.CheckoutStage.WithLabelValues(state).Inc()
}

// Failed counts a failed attempt and each of its violations.
func (m *CheckoutMetrics) Failed(kind string, violations ...string) {
	if m == nil {
		return
	}
	m.CheckoutFailed.WithLabelValues(kind).Inc()
	for _, v := range violations {
		m.ValidationFailures.WithLabelValues(v).Inc()
	}
}

// Redirected counts a successful attempt of the given value.
func (m *CheckoutMetrics) Redirected(valueCents int64) {
	if m == nil {
		return
	}
	m.CheckoutRedirected.Inc()
	m.CheckoutValue.Observe(float64(valueCents))
}

// ObserveCatalog records one catalog round trip.
func (m *CheckoutMetrics) ObserveCatalog(start time.Time, err error) {
	if m == nil {
		return
	}
	m.CatalogLatency.WithLabelValues(outcome(err)).Observe(time.Since(start).Seconds())
}

// ObservePayment records one payment processor round trip.
func (m *CheckoutMetrics) ObservePayment(start time.Time, err error) {
	if m == nil {
		return
	}
	m.PaymentLatency.WithLabelValues(outcome(err)).Observe(time.Since(start).Seconds())
}
