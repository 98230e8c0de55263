package notifier

import (
	"context"
	"log/slog"
	"time"

	"jobscout/internal/domain/entity"
)

// WebhookConfig configures the generic JSON webhook sink.
type WebhookConfig struct {
	Enabled bool
	URL     string
	// Headers are added to every request, e.g. an Authorization header.
	Headers           map[string]string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// WebhookSink posts the error record itself as the JSON body.
type WebhookSink struct {
	config  WebhookConfig
	webhook webhook
	logger  *slog.Logger
}

// NewWebhookSink defaults to 1 request/second with burst of 5.
func NewWebhookSink(config WebhookConfig, logger *slog.Logger) *WebhookSink {
	if logger == nil {
		logger = slog.Default()
	}
	rps, burst := config.RequestsPerSecond, config.Burst
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 5
	}
	w := newWebhook("webhook", config.URL, config.Timeout, NewRateLimiter(rps, burst))
	w.headers = config.Headers
	return &WebhookSink{config: config, webhook: w, logger: logger}
}

func (w *WebhookSink) Name() string { return "webhook" }

func (w *WebhookSink) IsEnabled() bool { return w.config.Enabled && w.config.URL != "" }

// Notify posts r as JSON.
func (w *WebhookSink) Notify(ctx context.Context, r *entity.ErrorRecord) error {
	if err := w.webhook.post(ctx, r); err != nil {
		w.logger.Warn("webhook notification failed",
			slog.String("error_id", r.ID),
			slog.Any("error", err))
		return err
	}
	return nil
}
