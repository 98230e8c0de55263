package entity

import (
	"strings"
	"time"
)

// Severity ranks how urgent a reported failure is.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity parses a severity name. Unknown names map to SeverityMedium.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrorRecord is an immutable description of one reported failure.
type ErrorRecord struct {
	ID            string         `json:"error_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Severity      Severity       `json:"severity"`
	Component     string         `json:"component"`
	Operation     string         `json:"operation"`
	Kind          string         `json:"error_kind"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
	StackTrace    string         `json:"stack_trace,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// Notifiable reports whether the record should be fanned out to notification sinks.
func (r *ErrorRecord) Notifiable() bool {
	return r.Severity >= SeverityHigh
}
