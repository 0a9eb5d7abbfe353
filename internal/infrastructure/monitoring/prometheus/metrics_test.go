package prometheus

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBareMetrics() *Metrics {
	return newWithRegistry(prometheus.NewRegistry())
}

func TestObserveAnalysis(t *testing.T) {
	t.Parallel()

	m := newBareMetrics()
	m.ObserveAnalysis("high", 120*time.Millisecond)
	m.ObserveAnalysis("high", 80*time.Millisecond)
	m.ObserveAnalysis("low", 50*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analysesTotal.WithLabelValues("high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysesTotal.WithLabelValues("low")))
}

func TestReferenceImportsAndIndexSize(t *testing.T) {
	t.Parallel()

	m := newBareMetrics()
	m.AddReferenceImport()
	m.AddReferenceImport()
	m.SetIndexSize(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.referenceImports))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.indexSize))
}

func TestObserveHTTPRequest(t *testing.T) {
	t.Parallel()

	m := newBareMetrics()
	m.ObserveHTTPRequest("POST", "/api/v1/analyze", "200", 30*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/api/v1/analyze", "200")))
}

func TestHandler_ServesMetrics(t *testing.T) {
	t.Parallel()

	m := newBareMetrics()
	m.SetIndexSize(7)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "sentinel_index_size 7")
}
