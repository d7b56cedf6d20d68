package metric

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auralink_test_counter_total",
		Help: "Test counter",
	})

	err := registry.RegisterCounter("pipeline", "test_counter", counter)
	require.NoError(t, err)

	// Same key registers once only
	err = registry.RegisterCounter("pipeline", "test_counter", counter)
	assert.Error(t, err)
}

func TestUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auralink_test_gauge",
		Help: "Test gauge",
	})

	require.NoError(t, registry.RegisterGauge("fanout", "test_gauge", gauge))
	assert.True(t, registry.Unregister("fanout", "test_gauge"))
	assert.False(t, registry.Unregister("fanout", "test_gauge"))

	// Re-registration succeeds after unregister
	require.NoError(t, registry.RegisterGauge("fanout", "test_gauge", gauge))
}

func TestHandler(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auralink_handler_hits_total",
		Help: "Test counter",
	})
	require.NoError(t, registry.RegisterCounter("gateway", "handler_hits", counter))
	counter.Inc()

	srv := httptest.NewServer(registry.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "auralink_handler_hits_total 1")
}
