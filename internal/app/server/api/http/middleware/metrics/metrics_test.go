package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Middleware(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	m := New(reg)
	mw := m.Middleware()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)

	// Act
	for i := 0; i < 2; i++ {
		hctx := humatest.NewContext(&huma.Operation{OperationID: "health-check"}, r, httptest.NewRecorder())
		mw(hctx, func(huma.Context) {})
	}
	hctx := humatest.NewContext(&huma.Operation{OperationID: "graphql"}, r, httptest.NewRecorder())
	mw(hctx, func(c huma.Context) { c.SetStatus(http.StatusServiceUnavailable) })

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("health-check", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("graphql", "503")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}
