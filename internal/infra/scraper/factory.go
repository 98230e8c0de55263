package scraper

import (
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"jobscout/internal/domain/entity"
	"jobscout/internal/usecase/search"
)

// Source names, also used as component and breaker names.
const (
	NameRemotive       = "remotive"
	NameArbeitnow      = "arbeitnow"
	NameHimalayas      = "himalayas"
	NameFindwork       = "findwork"
	NameWeWorkRemotely = "weworkremotely"
	NameLinkedIn       = "linkedin"
)

// Names lists every adapter in registration order.
var Names = []string{NameRemotive, NameArbeitnow, NameFindwork, NameWeWorkRemotely, NameHimalayas, NameLinkedIn}

var defaultBaseURLs = map[string]string{
	NameRemotive:       "https://remotive.com",
	NameArbeitnow:      "https://www.arbeitnow.com",
	NameHimalayas:      "https://himalayas.app",
	NameFindwork:       "https://findwork.dev",
	NameWeWorkRemotely: "https://weworkremotely.com",
	NameLinkedIn:       "https://www.linkedin.com",
}

// Config selects and tunes the adapters.
type Config struct {
	// Sources lists the adapters to enable. Empty enables all of them.
	Sources           []string
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	// MaxResults caps the listings taken from one response.
	MaxResults    int
	FindworkToken string
	// BaseURLs overrides the endpoint of an adapter.
	BaseURLs map[string]string
}

// DefaultConfig returns a config that enables every adapter at 2 req/s.
func DefaultConfig() Config {
	return Config{
		UserAgent:         defaultUserAgent,
		RequestsPerSecond: 2,
		Burst:             2,
		MaxResults:        50,
	}
}

// NewFromConfig builds the enabled adapters in registration order.
// Findwork is skipped when no token is configured.
func NewFromConfig(client *http.Client, cfg Config, logger *slog.Logger) ([]search.Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	enabled := cfg.Sources
	if len(enabled) == 0 {
		enabled = Names
	}

	sources := make([]search.Source, 0, len(enabled))
	for _, name := range enabled {
		if _, ok := defaultBaseURLs[name]; !ok {
			return nil, fmt.Errorf("%w: unknown source %q", entity.ErrInvalidInput, name)
		}
		if name == NameFindwork && cfg.FindworkToken == "" {
			logger.Warn("findwork source disabled: no API token configured")
			continue
		}
		sources = append(sources, newSource(name, client, cfg))
	}
	return sources, nil
}

func newSource(name string, client *http.Client, cfg Config) search.Source {
	base := httpSource{
		name:      name,
		baseURL:   defaultBaseURLs[name],
		client:    client,
		userAgent: cfg.UserAgent,
	}
	if u, ok := cfg.BaseURLs[name]; ok && u != "" {
		base.baseURL = u
	}
	if base.userAgent == "" {
		base.userAgent = defaultUserAgent
	}
	if cfg.RequestsPerSecond > 0 {
		base.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}
	limit := cfg.MaxResults
	if limit <= 0 {
		limit = 50
	}

	switch name {
	case NameRemotive:
		return &Remotive{httpSource: base, limit: limit}
	case NameArbeitnow:
		return &Arbeitnow{httpSource: base, limit: limit}
	case NameHimalayas:
		return &Himalayas{httpSource: base, limit: limit}
	case NameFindwork:
		base.headers = map[string]string{"Authorization": "Token " + cfg.FindworkToken}
		return &Findwork{httpSource: base}
	case NameWeWorkRemotely:
		return &WeWorkRemotely{httpSource: base, limit: limit}
	default:
		return &LinkedIn{httpSource: base, limit: min(limit, 20)}
	}
}
