package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	defer m.Stop()

	m.SetSessionsActive(2)
	m.SetTabsOpen(5)
	m.RecordProxyCheck("connected")
	m.RecordHTTPRequest("GET", "/sessions", "200", 10*time.Millisecond, 0, 100)
	m.RecordHTTPRequest("POST", "/profiles/:id/launch", "404", 30*time.Millisecond, 0, 20)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.ActiveSessions)
	assert.Equal(t, int64(5), snap.OpenTabs)
	assert.Equal(t, int64(1), snap.ProxyChecks)
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.Equal(t, 20*time.Millisecond, m.AverageRequestDuration().Round(time.Millisecond))
}

func TestProxyCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	defer m.Stop()

	m.RecordProxyAttempt("failure", time.Second)
	m.RecordProxyAttempt("failure", time.Second)
	m.RecordProxyAttempt("success", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProxyAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProxyAttempts.WithLabelValues("success")))
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())
	defer m.Stop()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/ping", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/ping", "200")))
}

func TestTimerRecordsServiceCall(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	defer m.Stop()

	timer := NewTimer(m, "profiles", "get")
	timer.Stop("success")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ServiceCalls.WithLabelValues("profiles", "get", "success")))
}

func TestMiddlewareCountsUpgradedRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())
	defer m.Stop()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/stream", func(c *gin.Context) {
		time.Sleep(20 * time.Millisecond)
		c.Status(http.StatusBadRequest)
	})

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Upgrade", "websocket")
	router.ServeHTTP(w, req)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/stream", "400")))
	assert.Less(t, m.AverageRequestDuration(), 20*time.Millisecond)
}
