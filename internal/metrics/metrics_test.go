package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCounters(t *testing.T) {
	r := New()

	r.CacheHit("prediction")
	r.CacheMiss("prediction")
	r.CacheMiss("prediction")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheRequests.WithLabelValues("prediction", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheRequests.WithLabelValues("prediction", "miss")))

	r.AnalysisDone(0.7, nil)
	r.AnalysisDone(0, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Analyses.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Analyses.WithLabelValues("error")))

	r.ObserveUpstream("stocksense", "predict", time.Now(), errors.New("timeout"))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.UpstreamErrors.WithLabelValues("stocksense", "predict")))

	r.SchedulerRun("popular_refresh", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SchedulerRuns.WithLabelValues("popular_refresh", "ok")))
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.CacheHit("x")
		r.CacheMiss("x")
		r.AnalysisDone(1, nil)
		r.ObserveUpstream("a", "b", time.Now(), nil)
		r.ObserveHTTP("GET", "/", "200", time.Millisecond)
		r.SchedulerRun("t", nil)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveHTTP("GET", "/healthz", "200", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "stocksense_http_requests_total"))
}
