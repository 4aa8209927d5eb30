package client

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/reagent-match/pkg/errors"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRetryWait(time.Millisecond, 5*time.Millisecond)}, opts...)
	client, err := NewClient(server.URL, opts...)
	require.NoError(t, err)
	return client
}

// ---------------------------------------------------------------------------
// Constructor Tests
// ---------------------------------------------------------------------------

func TestNewClient_Success(t *testing.T) {
	c, err := NewClient("http://match.example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://match.example.com", c.baseURL)
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "reagentmatch-go-sdk/")
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "ftp://invalid", "invalid-url", "http://[::1"} {
		_, err := NewClient(u)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), u)
	}
}

func TestNewClient_BaseURLTrailingSlash(t *testing.T) {
	c, err := NewClient("http://match.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://match.example.com", c.baseURL)
}

// ---------------------------------------------------------------------------
// HTTP Execution Tests (do)
// ---------------------------------------------------------------------------

func TestClient_Do_RequestHeaders(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Contains(t, r.Header.Get("User-Agent"), "reagentmatch-go-sdk/")
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "abc", r.Header.Get("X-Gateway-Token"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":"Toluol"}`, string(body))
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, handler, WithHeader("X-Gateway-Token", "abc"))
	require.NoError(t, c.post(context.Background(), "/test", map[string]string{"query": "Toluol"}, nil))
}

func TestClient_Do_NilBody(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, int64(0), r.ContentLength)
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, handler)
	assert.NoError(t, c.get(context.Background(), "test", nil))
}

func TestClient_Do_APIError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"MATCH_003","message":"unit outside vocabulary","detail":"unit=gal","request_id":"srv-1"}`))
	}
	c := newTestClient(t, handler)

	err := c.get(context.Background(), "/x", nil)
	var apiErr *APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "MATCH_003", apiErr.Code)
	assert.Equal(t, "unit=gal", apiErr.Detail)
	assert.Equal(t, "srv-1", apiErr.RequestID)
	assert.True(t, apiErr.IsInvalidQuery())
	assert.False(t, apiErr.IsServerError())
	assert.Contains(t, apiErr.Error(), "unit outside vocabulary: unit=gal")
}

func TestClient_Do_NonJSONError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("404 page not found"))
	}
	c := newTestClient(t, handler)

	err := c.get(context.Background(), "/x", nil)
	var apiErr *APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, "404 page not found", apiErr.Message)
}

func TestClient_Do_RetryOn5xx(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"version":"v1"}`))
	}
	logger := &testLogger{}
	c := newTestClient(t, handler, WithLogger(logger))

	var out CatalogInfo
	require.NoError(t, c.get(context.Background(), "/x", &out))
	assert.Equal(t, "v1", out.Version)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Positive(t, atomic.LoadInt32(&logger.debugCalls))
}

func TestClient_Do_RetryExhausted(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}
	c := newTestClient(t, handler, WithRetryMax(2))

	err := c.get(context.Background(), "/x", nil)
	var apiErr *APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Do_NoRetryOn4xx(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	c := newTestClient(t, handler)

	assert.Error(t, c.get(context.Background(), "/x", nil))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Do_RetryAfter(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
	logger := &testLogger{}
	c := newTestClient(t, handler, WithLogger(logger))

	require.NoError(t, c.get(context.Background(), "/x", nil))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&logger.infoCalls))
}

func TestClient_Do_ContextCancelled(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	c := newTestClient(t, handler, WithRetryWait(time.Second, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.get(ctx, "/x", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Do_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	logger := &testLogger{}
	c, err := NewClient(url, WithRetryMax(1), WithRetryWait(time.Millisecond, time.Millisecond), WithLogger(logger))
	require.NoError(t, err)

	assert.Error(t, c.get(context.Background(), "/x", nil))
	assert.Equal(t, int32(2), atomic.LoadInt32(&logger.errorCalls))
}

func TestClient_CalculateBackoff(t *testing.T) {
	c, _ := NewClient("http://match.example.com", WithRetryWait(100*time.Millisecond, time.Second))

	for attempt, base := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 5: time.Second} {
		got := c.calculateBackoff(attempt)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+base/4)
	}
}
