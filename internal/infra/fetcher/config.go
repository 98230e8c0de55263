package fetcher

import (
	"fmt"
	"log/slog"
	"time"

	pkgconfig "jobscout/internal/pkg/config"
)

// Config controls listing page fetches used for description enrichment.
type Config struct {
	// Enabled turns enrichment off entirely when false.
	Enabled bool

	// Threshold is the description length (in runes) below which the
	// listing page is fetched.
	Threshold int

	// Timeout bounds a single page fetch.
	Timeout time.Duration

	// Parallelism bounds concurrent page fetches within one search.
	Parallelism int

	// MaxBodySize rejects larger responses while reading them.
	MaxBodySize int64

	MaxRedirects int

	// DenyPrivateIPs rejects URLs and redirect targets that resolve to
	// private addresses. Keep it on outside tests.
	DenyPrivateIPs bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Threshold:      200,
		Timeout:        10 * time.Second,
		Parallelism:    5,
		MaxBodySize:    5 * 1024 * 1024, // 5MB
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Validate checks the configuration.
//
// Validation rules:
//   - Threshold: >= 0
//   - Timeout: > 0
//   - Parallelism: 1-50
//   - MaxBodySize: 1KB-100MB
//   - MaxRedirects: 0-10
func (c Config) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.Parallelism < 1 || c.Parallelism > 50 {
		return fmt.Errorf("parallelism must be between 1 and 50, got %d", c.Parallelism)
	}
	const minBody, maxBody = int64(1024), int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBody || c.MaxBodySize > maxBody {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBody, maxBody, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv reads CONTENT_FETCH_* variables. Invalid values fall
// back to the defaults and are logged.
//
// Environment variables:
//   - CONTENT_FETCH_ENABLED (default true)
//   - CONTENT_FETCH_THRESHOLD (default 200)
//   - CONTENT_FETCH_TIMEOUT (default 10s)
//   - CONTENT_FETCH_PARALLELISM (default 5)
//   - CONTENT_FETCH_MAX_BODY_SIZE in bytes (default 5MB)
//   - CONTENT_FETCH_MAX_REDIRECTS (default 5)
//   - CONTENT_FETCH_DENY_PRIVATE_IPS (default true)
func LoadConfigFromEnv(metrics *pkgconfig.ConfigMetrics, logger *slog.Logger) Config {
	d := DefaultConfig()
	tr := pkgconfig.NewTracker(metrics)

	cfg := Config{
		Enabled:        pkgconfig.Track(tr, "enabled", pkgconfig.LoadEnvBool("CONTENT_FETCH_ENABLED", d.Enabled)),
		Threshold:      pkgconfig.Track(tr, "threshold", pkgconfig.LoadEnvInt("CONTENT_FETCH_THRESHOLD", d.Threshold, pkgconfig.InRange(0, 100000))),
		Timeout:        pkgconfig.Track(tr, "timeout", pkgconfig.LoadEnvDuration("CONTENT_FETCH_TIMEOUT", d.Timeout, pkgconfig.Between(time.Second, 2*time.Minute))),
		Parallelism:    pkgconfig.Track(tr, "parallelism", pkgconfig.LoadEnvInt("CONTENT_FETCH_PARALLELISM", d.Parallelism, pkgconfig.InRange(1, 50))),
		MaxBodySize:    int64(pkgconfig.Track(tr, "max_body_size", pkgconfig.LoadEnvInt("CONTENT_FETCH_MAX_BODY_SIZE", int(d.MaxBodySize), pkgconfig.InRange(1024, 100*1024*1024)))),
		MaxRedirects:   pkgconfig.Track(tr, "max_redirects", pkgconfig.LoadEnvInt("CONTENT_FETCH_MAX_REDIRECTS", d.MaxRedirects, pkgconfig.InRange(0, 10))),
		DenyPrivateIPs: pkgconfig.Track(tr, "deny_private_ips", pkgconfig.LoadEnvBool("CONTENT_FETCH_DENY_PRIVATE_IPS", d.DenyPrivateIPs)),
	}
	tr.Finish(logger)
	return cfg
}
