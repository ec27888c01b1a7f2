package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	collector := New()
	r := gin.New()
	r.Use(collector.GinMiddleware())
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/orders/1", "/orders/2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues(http.MethodGet, "/orders/:id", "200"))
	assert.Equal(t, float64(2), got)
}

func TestTaskAndSchedulerCounters(t *testing.T) {
	collector := New()
	collector.ObserveTask("order:refund", nil, time.Millisecond)
	collector.ObserveTask("order:refund", errors.New("boom"), time.Millisecond)
	collector.ObserveSchedulerRun("crowdfunding_finalize", ResultSuccess, 3)
	collector.SeckillRejected(SeckillRejectDropped)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.taskTotal.WithLabelValues("order:refund", ResultFailure)))
	assert.Equal(t, float64(3), testutil.ToFloat64(collector.schedulerProcessed.WithLabelValues("crowdfunding_finalize")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.seckillRejected.WithLabelValues(SeckillRejectDropped)))

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(w.Body.String(), "mall_worker_tasks_total"))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *Collector
	collector.ObserveTask("x", nil, 0)
	collector.ObserveSchedulerRun("x", ResultSkipped, 1)
	collector.SeckillRejected(SeckillRejectRateLimit)
	assert.Nil(t, collector.Registry())
}
