package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-shiori/go-readability"

	"jobscout/internal/resilience/circuitbreaker"
	"jobscout/internal/resilience/failure"
	"jobscout/internal/utils/text"
)

const userAgent = "JobScoutBot/1.0"

// ReadabilityFetcher extracts the main text of a listing page with the
// Mozilla Readability algorithm. It is safe for concurrent use.
type ReadabilityFetcher struct {
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	config  Config
	logger  *slog.Logger
}

// NewReadabilityFetcher creates a fetcher. breaker may be nil; when set,
// every page fetch runs through it.
func NewReadabilityFetcher(config Config, breaker *circuitbreaker.CircuitBreaker, logger *slog.Logger) *ReadabilityFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &ReadabilityFetcher{breaker: breaker, config: config, logger: logger}
	f.client = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
	return f
}

// FetchContent returns the readable text of the page at urlStr.
func (f *ReadabilityFetcher) FetchContent(ctx context.Context, urlStr string) (string, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", err
	}
	if f.breaker == nil {
		return f.doFetch(ctx, urlStr)
	}
	return circuitbreaker.Do(f.breaker, func() (string, error) {
		return f.doFetch(ctx, urlStr)
	})
}

func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", failure.New(failure.Timeout, fmt.Errorf("fetch %s: exceeded %v", urlStr, f.config.Timeout))
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && (errors.Is(urlErr.Err, ErrTooManyRedirects) || errors.Is(urlErr.Err, ErrPrivateIP) || errors.Is(urlErr.Err, ErrInvalidURL)) {
			return "", urlErr.Err
		}
		return "", fmt.Errorf("fetch %s: %w", urlStr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &failure.HTTPError{StatusCode: resp.StatusCode, Message: "fetch " + urlStr}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBodySize {
		return "", failure.New(failure.ResourceExhausted, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.config.MaxBodySize))
	}

	pageURL := resp.Request.URL
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", failure.New(failure.DataFormatError, fmt.Errorf("%w: %v", ErrReadabilityFailed, err))
	}
	content := text.Collapse(article.TextContent)
	if content == "" {
		return "", failure.New(failure.DataFormatError, fmt.Errorf("%w: no readable content found", ErrReadabilityFailed))
	}

	f.logger.Debug("listing page fetched",
		slog.String("url", urlStr),
		slog.Int("content_length", len(content)))
	return content, nil
}
