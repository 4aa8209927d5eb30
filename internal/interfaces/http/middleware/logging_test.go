package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/prometheus"
)

func TestRequestID_Generated(t *testing.T) {
	engine := newTestEngine(RequestID())
	var seen string
	engine.GET("/id", func(c *gin.Context) { seen = GetRequestID(c) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

func TestRequestID_Propagated(t *testing.T) {
	engine := newTestEngine(RequestID())
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	r.Header.Set(RequestIDHeader, "req-42")
	engine.ServeHTTP(w, r)

	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestRequestLogging_PassesThrough(t *testing.T) {
	engine := newTestEngine(RequestID(), RequestLogging(logging.NewNopLogger(), DefaultLoggingConfig()))
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for path, want := range map[string]int{"/api/v1/search": http.StatusOK, "/healthz": http.StatusNoContent, "/missing": http.StatusNotFound} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	engine := newTestEngine(Metrics(prometheus.NewMatchMetrics(collector)))

	for _, path := range []string{"/api/v1/search", "/nowhere"} {
		engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `path="/api/v1/search"`)
	assert.Contains(t, body, `path="unmatched"`)
}

func TestRecovery(t *testing.T) {
	engine := newTestEngine(Recovery(logging.NewNopLogger()))
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "COMMON_001")
}

func TestBodyLimit(t *testing.T) {
	engine := newTestEngine(BodyLimit(8))
	engine.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("short")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("far too long a body")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestDefaultLoggingConfig(t *testing.T) {
	cfg := DefaultLoggingConfig()
	assert.Contains(t, cfg.SkipPaths, "/metrics")
	assert.Equal(t, time.Second, cfg.SlowThreshold)
}
