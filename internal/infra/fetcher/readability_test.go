package fetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jobscout/internal/resilience/circuitbreaker"
	"jobscout/internal/resilience/failure"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Senior Go Engineer</title></head>
<body>
<nav>Home | Jobs | About</nav>
<article>
<h1>Senior Go Engineer</h1>
<p>We are looking for an experienced Go engineer to build distributed job aggregation services.
You will design resilient pipelines, own circuit breakers and retries, and work closely with the platform team.</p>
<p>Requirements: five years of backend experience, strong knowledge of PostgreSQL and Redis,
and a passion for observability. Remote friendly, full time, competitive salary.</p>
<p>Benefits include flexible hours, a learning budget, and a modern laptop of your choice.
We value clear communication and thoughtful code review across the whole engineering group.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DenyPrivateIPs = false
	cfg.Timeout = 2 * time.Second
	return cfg
}

func TestFetchContent_ExtractsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != userAgent {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	f := NewReadabilityFetcher(testConfig(), nil, nil)
	text, err := f.FetchContent(context.Background(), server.URL+"/jobs/1")
	if err != nil {
		t.Fatalf("FetchContent() error = %v", err)
	}
	if !strings.Contains(text, "experienced Go engineer") {
		t.Errorf("text missing article body: %q", text)
	}
	if strings.Contains(text, "\n") {
		t.Error("whitespace not collapsed")
	}
}

func TestFetchContent_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		cfg     func(*Config)
		check   func(t *testing.T, err error)
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			check: func(t *testing.T, err error) {
				var httpErr *failure.HTTPError
				if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
					t.Errorf("error = %v, want HTTPError 404", err)
				}
			},
		},
		{
			name: "body too large",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(strings.Repeat("a", 4096)))
			},
			cfg: func(c *Config) { c.MaxBodySize = 1024 },
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrBodyTooLarge) {
					t.Errorf("error = %v, want ErrBodyTooLarge", err)
				}
				if failure.Classify(err) != failure.ResourceExhausted {
					t.Errorf("kind = %v", failure.Classify(err))
				}
			},
		},
		{
			name: "too many redirects",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/loop", http.StatusFound)
			},
			cfg: func(c *Config) { c.MaxRedirects = 2 },
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrTooManyRedirects) {
					t.Errorf("error = %v, want ErrTooManyRedirects", err)
				}
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			cfg: func(c *Config) { c.Timeout = 50 * time.Millisecond },
			check: func(t *testing.T, err error) {
				if failure.Classify(err) != failure.Timeout {
					t.Errorf("error = %v, want timeout", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			cfg := testConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			_, err := NewReadabilityFetcher(cfg, nil, nil).FetchContent(context.Background(), server.URL)
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestFetchContent_RejectsPrivateAddress(t *testing.T) {
	f := NewReadabilityFetcher(DefaultConfig(), nil, nil)
	_, err := f.FetchContent(context.Background(), "http://127.0.0.1:1/job")
	if !errors.Is(err, ErrPrivateIP) {
		t.Errorf("error = %v, want ErrPrivateIP", err)
	}
}

func TestFetchContent_UsesBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cb := circuitbreaker.New(circuitbreaker.Config{
		Name:             "content-fetch-test",
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
	}, nil)
	f := NewReadabilityFetcher(testConfig(), cb, nil)

	for range 2 {
		_, _ = f.FetchContent(context.Background(), server.URL)
	}
	_, err := f.FetchContent(context.Background(), server.URL)
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		deny    bool
		wantErr error
	}{
		{"https://example.com/job", false, nil},
		{"ftp://example.com/job", false, ErrInvalidURL},
		{"http:///nohost", false, ErrInvalidURL},
		{"http://localhost/job", true, ErrPrivateIP},
		{"http://10.0.0.1/job", true, ErrPrivateIP},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := validateURL(tt.url, tt.deny)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"169.254.1.1", true},
		{"::1", true},
		{"fc00::1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
	}
	for _, tt := range tests {
		if got := isPrivateIP(net.ParseIP(tt.ip)); got != tt.want {
			t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}
