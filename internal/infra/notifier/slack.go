package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobscout/internal/domain/entity"
	"jobscout/internal/utils/text"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// Enabled indicates whether Slack notifications are enabled
	Enabled bool

	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Slack API calls
	Timeout time.Duration
}

// SlackSink posts error records to a Slack Incoming Webhook using Block Kit.
type SlackSink struct {
	config  SlackConfig
	webhook webhook
	logger  *slog.Logger
}

// NewSlackSink creates a sink limited to 1 request/second with burst of 1,
// matching the Slack webhook limit.
func NewSlackSink(config SlackConfig, logger *slog.Logger) *SlackSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackSink{
		config:  config,
		webhook: newWebhook("slack", config.WebhookURL, config.Timeout, NewRateLimiter(1.0, 1)),
		logger:  logger,
	}
}

// SlackWebhookPayload is the JSON body sent to Slack.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`
	Blocks []SlackBlock `json:"blocks"`
}

// SlackBlock is a Block Kit block ("section" or "context").
type SlackBlock struct {
	Type     string            `json:"type"`
	Text     *SlackTextObject  `json:"text,omitempty"`
	Elements []SlackTextObject `json:"elements,omitempty"`
}

// SlackTextObject is a Block Kit text object.
type SlackTextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	maxSectionTextLength = 3000
	maxContextTextLength = 2000
	maxFallbackLength    = 150
)

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) IsEnabled() bool { return s.config.Enabled && s.config.WebhookURL != "" }

func (s *SlackSink) buildPayload(r *entity.ErrorRecord) SlackWebhookPayload {
	var section strings.Builder
	fmt.Fprintf(&section, "*%s*\n\n%s", headline(r), r.Message)
	if len(r.Details) > 0 {
		section.WriteString("\n")
		keys := make([]string, 0, len(r.Details))
		for k := range r.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&section, "\n• `%s`: %v", k, r.Details[k])
		}
	}

	footer := fmt.Sprintf("error_id %s • %s", r.ID, r.Timestamp.UTC().Format(time.RFC3339))
	if r.CorrelationID != "" {
		footer += " • correlation_id " + r.CorrelationID
	}

	return SlackWebhookPayload{
		Text: text.Truncate(headline(r), maxFallbackLength),
		Blocks: []SlackBlock{
			{Type: "section", Text: &SlackTextObject{Type: "mrkdwn", Text: text.Truncate(section.String(), maxSectionTextLength)}},
			{Type: "context", Elements: []SlackTextObject{{Type: "mrkdwn", Text: text.Truncate(footer, maxContextTextLength)}}},
		},
	}
}

// Notify sends one Slack message for the record.
func (s *SlackSink) Notify(ctx context.Context, r *entity.ErrorRecord) error {
	requestID := uuid.New().String()
	if err := s.webhook.post(ctx, s.buildPayload(r)); err != nil {
		s.logger.Warn("Slack notification failed",
			slog.String("request_id", requestID),
			slog.String("error_id", r.ID),
			slog.Any("error", err))
		return err
	}
	s.logger.Debug("Slack notification sent",
		slog.String("request_id", requestID),
		slog.String("error_id", r.ID))
	return nil
}
