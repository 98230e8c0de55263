package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"jobscout/internal/domain/entity"
	"jobscout/internal/utils/text"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// DiscordSink posts error records to a Discord webhook as embeds.
type DiscordSink struct {
	config  DiscordConfig
	webhook webhook
	logger  *slog.Logger
}

// NewDiscordSink creates a sink limited to 0.5 requests/second with burst
// of 3 (Discord allows 30 requests per minute per webhook).
func NewDiscordSink(config DiscordConfig, logger *slog.Logger) *DiscordSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscordSink{
		config:  config,
		webhook: newWebhook("discord", config.WebhookURL, config.Timeout, NewRateLimiter(0.5, 3)),
		logger:  logger,
	}
}

// DiscordWebhookPayload is the JSON body sent to Discord.
type DiscordWebhookPayload struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed is a single Discord embed.
type DiscordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Footer      DiscordEmbedFooter  `json:"footer"`
	Timestamp   string              `json:"timestamp"`
}

// DiscordEmbedField is a name/value row in an embed.
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// DiscordEmbedFooter is the footer of an embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	maxFieldValueLength  = 1024
	maxEmbedFields       = 25
)

func (d *DiscordSink) Name() string { return "discord" }

func (d *DiscordSink) IsEnabled() bool { return d.config.Enabled && d.config.WebhookURL != "" }

func (d *DiscordSink) buildPayload(r *entity.ErrorRecord) DiscordWebhookPayload {
	fields := []DiscordEmbedField{
		{Name: "component", Value: r.Component, Inline: true},
		{Name: "operation", Value: r.Operation, Inline: true},
		{Name: "kind", Value: r.Kind, Inline: true},
	}
	keys := make([]string, 0, len(r.Details))
	for k := range r.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(fields) >= maxEmbedFields {
			break
		}
		fields = append(fields, DiscordEmbedField{
			Name:   k,
			Value:  text.Truncate(fmt.Sprint(r.Details[k]), maxFieldValueLength),
			Inline: true,
		})
	}

	return DiscordWebhookPayload{Embeds: []DiscordEmbed{{
		Title:       text.Truncate(headline(r), maxTitleLength),
		Description: text.Truncate(r.Message, maxDescriptionLength),
		Color:       severityColor(r.Severity),
		Fields:      fields,
		Footer:      DiscordEmbedFooter{Text: "error_id " + r.ID},
		Timestamp:   r.Timestamp.UTC().Format(time.RFC3339),
	}}}
}

// Notify sends one Discord message for the record.
func (d *DiscordSink) Notify(ctx context.Context, r *entity.ErrorRecord) error {
	requestID := uuid.New().String()
	if err := d.webhook.post(ctx, d.buildPayload(r)); err != nil {
		d.logger.Warn("Discord notification failed",
			slog.String("request_id", requestID),
			slog.String("error_id", r.ID),
			slog.Any("error", err))
		return err
	}
	d.logger.Debug("Discord notification sent",
		slog.String("request_id", requestID),
		slog.String("error_id", r.ID))
	return nil
}
