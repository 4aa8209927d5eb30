// Package middleware holds the gin middleware chain of the matching API.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// LoggingConfig controls request logging.
type LoggingConfig struct {
	// SkipPaths are not logged (probes, metrics scrapes).
	SkipPaths []string

	// SlowThreshold logs successful requests above it at warn level.
	SlowThreshold time.Duration
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: time.Second,
	}
}

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogging logs one line per request, leveled by status and latency.
func RequestLogging(logger logging.Logger, config LoggingConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("duration", duration),
			logging.Int("bytes", c.Writer.Size()),
			logging.String("client_ip", c.ClientIP()),
			logging.String("request_id", GetRequestID(c)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("HTTP request completed with server error", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("HTTP request completed with client error", fields...)
		case config.SlowThreshold > 0 && duration >= config.SlowThreshold:
			logger.Warn("HTTP request completed (slow)", fields...)
		default:
			logger.Info("HTTP request completed", fields...)
		}
	}
}

// Metrics records request counts and latency per route template.
func Metrics(m *prometheus.MatchMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// Recovery converts panics into a 500 response and logs them.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered",
			logging.Any("panic", recovered),
			logging.String("path", c.Request.URL.Path),
			logging.String("request_id", GetRequestID(c)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": errors.DefaultMessageForCode(errors.ErrCodeInternal),
		})
	})
}

// BodyLimit caps request bodies at maxBytes.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
