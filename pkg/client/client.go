// Package client is a Go SDK for the reagent-match HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/reagent-match/pkg/errors"
)

const Version = "0.1.0"

// Logger defines the logging interface used by the Client
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// Client talks to one reagent-match API server.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	headers      http.Header
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// APIError represents an error response from the API
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("reagentmatch: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, msg, e.RequestID)
}

// IsNotLoaded reports whether the server has no catalog snapshot yet.
func (e *APIError) IsNotLoaded() bool {
	return e.Code == string(errors.ErrCodeSnapshotNotLoaded)
}

// IsInvalidQuery reports whether the request was rejected as malformed.
func (e *APIError) IsInvalidQuery() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New(errors.ErrCodeValidation, "baseURL is required")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid baseURL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeValidation, "baseURL scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    fmt.Sprintf("reagentmatch-go-sdk/%s", Version),
		headers:      make(http.Header),
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do performs an HTTP request with retry logic
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debugf("Retry attempt %d after %v", attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		requestID := uuid.New().String()
		for k, vs := range c.headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(start)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Errorf("Request failed: %v", err)
			lastErr = err
			continue
		}

		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, duration)

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
			if len(respBody) > 0 {
				var errResp struct {
					Code      string `json:"code"`
					Message   string `json:"message"`
					Detail    string `json:"detail"`
					RequestID string `json:"request_id"`
				}
				if err := json.Unmarshal(respBody, &errResp); err == nil {
					apiErr.Code = errResp.Code
					apiErr.Message = errResp.Message
					apiErr.Detail = errResp.Detail
					if errResp.RequestID != "" {
						apiErr.RequestID = errResp.RequestID
					}
				} else {
					apiErr.Message = string(respBody)
				}
			}

			lastErr = apiErr
			if wait, ok := c.retryAfter(resp, attempt); ok {
				c.logger.Infof("Server asked to retry after %v", wait)
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
			if c.shouldRetry(resp) {
				continue
			}
			return apiErr
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
		}
		return nil
	}

	return lastErr
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// retryAfter honours a Retry-After header on 429 and 503 responses.
func (c *Client) retryAfter(resp *http.Response, attempt int) (time.Duration, bool) {
	if attempt >= c.retryMax {
		return 0, false
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return 0, false
	}
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// shouldRetry retries 5xx responses except 501; 4xx are final.
func (c *Client) shouldRetry(resp *http.Response) bool {
	return resp.StatusCode >= 500 && resp.StatusCode < 600 && resp.StatusCode != http.StatusNotImplemented
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	if backoff < 4 {
		return backoff
	}
	jitter := time.Duration(rand.Int63n(int64(backoff / 4)))
	return backoff + jitter
}
