package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jobscout/internal/domain/entity"
	"jobscout/internal/resilience/failure"
	"jobscout/internal/utils/text"
)

const (
	maxResponseBody     = 64 * 1024
	defaultTimeout      = 10 * time.Second
	defaultRetryAfter   = 5 * time.Second
	maxErrorBodyInError = 200
)

// RateLimitError represents a 429 from a webhook endpoint.
type RateLimitError struct {
	Sink       string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded (retry after %v)", e.Sink, e.RetryAfter)
}

// FailureKind classifies the error as failure.RateLimited.
func (e *RateLimitError) FailureKind() failure.Kind { return failure.RateLimited }

// webhook posts JSON payloads to a single URL.
type webhook struct {
	name       string
	url        string
	headers    map[string]string
	httpClient *http.Client
	limiter    *RateLimiter
}

func newWebhook(name, url string, timeout time.Duration, limiter *RateLimiter) webhook {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return webhook{
		name:       name,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// post waits for the rate limiter, then sends payload once.
//
// Error types:
//   - 429: *RateLimitError
//   - other non-2xx: *failure.HTTPError
//   - transport errors are wrapped as-is
func (w *webhook) post(ctx context.Context, payload any) error {
	if w.limiter != nil {
		if err := w.limiter.Allow(ctx); err != nil {
			return fmt.Errorf("%s rate limiter: %w", w.name, err)
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", w.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create %s request: %w", w.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s request: %w", w.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Sink: w.name, RetryAfter: extractRetryAfter(resp, body)}
	default:
		return &failure.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s webhook: %s", w.name, text.Truncate(strings.TrimSpace(string(body)), maxErrorBodyInError)),
		}
	}
}

// extractRetryAfter reads retry_after (seconds) from a JSON body, then the
// Retry-After header. It defaults to 5s.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.RetryAfter > 0 {
		return time.Duration(payload.RetryAfter * float64(time.Second))
	}
	if h := resp.Header.Get("Retry-After"); h != "" {
		if seconds, err := strconv.Atoi(h); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultRetryAfter
}

// headline is the one-line summary shared by the chat sinks.
func headline(r *entity.ErrorRecord) string {
	return fmt.Sprintf("[%s] %s.%s failed: %s",
		strings.ToUpper(r.Severity.String()), r.Component, r.Operation, r.Kind)
}

// severityColor returns an RGB color for chat embeds.
func severityColor(s entity.Severity) int {
	switch s {
	case entity.SeverityCritical:
		return 0xB00020
	case entity.SeverityHigh:
		return 0xF57C00
	case entity.SeverityMedium:
		return 0xFBC02D
	default:
		return 0x5865F2
	}
}
