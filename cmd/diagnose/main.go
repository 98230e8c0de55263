// Command diagnose probes every configured job source once and prints a
// report. It exits 1 when any source fails.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"jobscout/internal/infra/scraper"
	"jobscout/internal/observability/logging"
	"jobscout/internal/resilience/failure"
	"jobscout/internal/usecase/search"
	"jobscout/internal/utils/text"
)

// Probe statuses.
const (
	StatusOK      = "OK"
	StatusEmpty   = "EMPTY"
	StatusTimeout = "TIMEOUT"
	StatusError   = "ERROR"
)

// SourceDiagnostic is the result of one probe.
type SourceDiagnostic struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	Listings     int    `json:"listings"`
	LatestPosted string `json:"latest_posted,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
}

// Report is the JSON output.
type Report struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Keywords    []string           `json:"keywords"`
	Sources     []SourceDiagnostic `json:"sources"`
}

func main() {
	var (
		keywords    = flag.String("keywords", "golang", "comma-separated search keywords")
		location    = flag.String("location", "", "search location")
		sourceNames = flag.String("sources", "", "comma-separated sources to probe (default all)")
		format      = flag.String("format", "text", "output format: text or json")
		timeout     = flag.Duration("timeout", 30*time.Second, "per-source timeout")
		parallel    = flag.Int("parallel", 3, "sources probed concurrently")
	)
	flag.Parse()

	logger := logging.NewLogger()
	if *format != "text" && *format != "json" {
		logger.Error("unsupported format", slog.String("format", *format))
		os.Exit(2)
	}

	cfg := scraper.DefaultConfig()
	cfg.Sources = splitList(*sourceNames)
	cfg.FindworkToken = os.Getenv("FINDWORK_API_TOKEN")
	client := &http.Client{
		Transport: &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}},
	}
	sources, err := scraper.NewFromConfig(client, cfg, logger)
	if err != nil {
		logger.Error("failed to create job sources", slog.Any("error", err))
		os.Exit(2)
	}

	kw := splitList(*keywords)
	logger.Info("diagnosing job sources", slog.Int("sources", len(sources)), slog.Any("keywords", kw))
	diagnostics := diagnoseAll(context.Background(), sources, kw, *location, *timeout, *parallel)

	report := Report{GeneratedAt: time.Now().UTC(), Keywords: kw, Sources: diagnostics}
	if *format == "json" {
		err = writeJSON(os.Stdout, report)
	} else {
		err = writeText(os.Stdout, report)
	}
	if err != nil {
		logger.Error("failed to write report", slog.Any("error", err))
		os.Exit(2)
	}

	for _, d := range diagnostics {
		if d.Status != StatusOK && d.Status != StatusEmpty {
			os.Exit(1)
		}
	}
}

// diagnoseAll probes sources with at most parallel in flight. Results keep
// the order of sources.
func diagnoseAll(ctx context.Context, sources []search.Source, keywords []string, location string, timeout time.Duration, parallel int) []SourceDiagnostic {
	out := make([]SourceDiagnostic, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i, src := range sources {
		g.Go(func() error {
			out[i] = diagnose(ctx, src, keywords, location, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func diagnose(ctx context.Context, src search.Source, keywords []string, location string, timeout time.Duration) SourceDiagnostic {
	d := SourceDiagnostic{Name: src.Name()}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	listings, err := src.Search(ctx, keywords, location)
	d.ResponseTime = time.Since(start).Milliseconds()

	if err != nil {
		d.Status = StatusError
		if errors.Is(err, context.DeadlineExceeded) {
			d.Status = StatusTimeout
		}
		d.ErrorKind = failure.Classify(err).String()
		d.ErrorMessage = text.Truncate(err.Error(), 200)
		return d
	}

	d.Listings = len(listings)
	if d.Listings == 0 {
		d.Status = StatusEmpty
		return d
	}
	d.Status = StatusOK
	var latest time.Time
	for _, l := range listings {
		if l.PostedAt.After(latest) {
			latest = l.PostedAt
		}
	}
	if !latest.IsZero() {
		d.LatestPosted = latest.Format(time.RFC3339)
	}
	return d
}

func writeJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func writeText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Job source diagnostic report (%s)\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Keywords: %s\n\n", strings.Join(r.Keywords, ", "))
	fmt.Fprintln(tw, "SOURCE\tSTATUS\tLISTINGS\tLATEST\tTIME\tERROR")

	counts := make(map[string]int)
	for _, d := range r.Sources {
		counts[d.Status]++
		latest := d.LatestPosted
		if latest == "" {
			latest = "-"
		}
		errText := "-"
		if d.ErrorMessage != "" {
			errText = d.ErrorKind + ": " + d.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%dms\t%s\n",
			d.Name, d.Status, d.Listings, latest, d.ResponseTime, errText)
	}
	fmt.Fprintf(tw, "\nOK: %d  EMPTY: %d  TIMEOUT: %d  ERROR: %d\n",
		counts[StatusOK], counts[StatusEmpty], counts[StatusTimeout], counts[StatusError])
	return tw.Flush()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
