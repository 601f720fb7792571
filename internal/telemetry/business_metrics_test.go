package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutMetrics_Funnel(t *testing.T) {
	m := NewCheckoutMetrics("test", prometheus.NewRegistry())

	m.Started()
	m.Reached("aggregated")
	m.Failed("validation_failed", "insufficient_stock", "insufficient_stock")
	m.Redirected(2500)
	m.CartUpdated("add")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutStage.WithLabelValues("aggregated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutFailed.WithLabelValues("validation_failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ValidationFailures.WithLabelValues("insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutRedirected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartUpdates.WithLabelValues("add")))

	m.ObserveCatalog(time.Now(), nil)
	m.ObservePayment(time.Now(), errors.New("boom"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CatalogLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PaymentLatency))
}

func TestCheckoutMetrics_NilIsNoop(t *testing.T) {
	var m *CheckoutMetrics
	assert.NotPanics(t, func() {
		m.Started()
		m.Reached("validated")
		m.Failed("x")
		m.Redirected(1)
		m.CartUpdated("remove")
		m.ObserveCatalog(time.Now(), nil)
		m.ObservePayment(time.Now(), nil)
	})
}

func TestCaptureError_DisabledIsNoop(t *testing.T) {
	assert.False(t, IsEnabled())
	assert.NotPanics(t, func() {
		CaptureError(errors.New("x"), map[string]interface{}{"k": "v"})
	})
}
