package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.Attempt("resilient", "rate_limited")
	m.Attempt("resilient", "success")
	m.Result("resilient", "ok")
	m.Backoff(2 * time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("resilient", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("resilient", "ok")))

	n, err := testutil.GatherAndCount(m.Registry(), "promptrelay_backoff_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Attempt("direct", "success")
		m.Result("direct", "ok")
		m.Backoff(time.Second)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Result("direct", "upstream_error")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `promptrelay_relay_results_total{handler="direct",result="upstream_error"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
