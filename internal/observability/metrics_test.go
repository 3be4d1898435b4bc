package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCountsOutcomes(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()
	m.Observe(ctx, "create_plate", true, 2*time.Millisecond)
	m.Observe(ctx, "create_plate", true, time.Millisecond)
	m.Observe(ctx, "create_plate", false, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create_plate", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create_plate", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest(http.MethodGet, "/api/v1/plates", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `imagedb_http_requests_total{method="GET",route="/api/v1/plates",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
