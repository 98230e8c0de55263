// Package scraper implements the job board adapters used by the aggregator.
//
// Adapters only translate HTTP responses into raw listings. Retries, breakers
// and timeouts are applied by the caller.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"jobscout/internal/resilience/failure"
	"jobscout/internal/utils/text"
)

const (
	maxBodySize      = 10 * 1024 * 1024 // 10MB
	defaultUserAgent = "Mozilla/5.0 (compatible; JobScoutBot/1.0)"
)

// httpSource is the transport shared by all adapters.
type httpSource struct {
	name      string
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	headers   map[string]string
}

func (s *httpSource) Name() string { return s.name }

// get performs a rate-limited GET and returns the body. Non-2xx statuses
// become *failure.HTTPError.
func (s *httpSource) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limit: %w", s.name, err)
		}
	}

	u := strings.TrimRight(s.baseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", s.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &failure.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s: unexpected status: %s", s.name, resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", s.name, err)
	}
	return body, nil
}

func (s *httpSource) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	body, err := s.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return failure.New(failure.DataFormatError, fmt.Errorf("%s decode response: %w", s.name, err))
	}
	return nil
}

func (s *httpSource) getDocument(ctx context.Context, path string, query url.Values) (*goquery.Document, error) {
	body, err := s.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, failure.New(failure.DataFormatError, fmt.Errorf("%s parse HTML: %w", s.name, err))
	}
	return doc, nil
}

// htmlToText strips tags and collapses whitespace.
func htmlToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return text.Collapse(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return text.Collapse(s)
	}
	return text.Collapse(doc.Text())
}

// matchesAny reports whether any keyword occurs in s, case-insensitively.
func matchesAny(s string, keywords []string) bool {
	s = strings.ToLower(s)
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// parseDate returns the zero time when s matches no known layout.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
