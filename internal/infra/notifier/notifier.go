// Package notifier delivers High and Critical error records to chat and
// webhook endpoints. Every sink implements report.Sink.
//
// Sinks make exactly one delivery attempt per record. The reporter treats a
// failed Notify as final, so nothing here retries.
package notifier

import "jobscout/internal/usecase/report"

var (
	_ report.Sink = (*SlackSink)(nil)
	_ report.Sink = (*DiscordSink)(nil)
	_ report.Sink = (*WebhookSink)(nil)
	_ report.Sink = NoOpSink{}
)
