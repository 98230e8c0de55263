package failure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"jobscout/internal/domain/entity"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	var syntaxErr error
	if err := json.Unmarshal([]byte("{"), &struct{}{}); err != nil {
		syntaxErr = err
	}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Unknown},
		{"deadline", context.DeadlineExceeded, Timeout},
		{"wrapped deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), Timeout},
		{"canceled", context.Canceled, Unknown},
		{"net timeout", timeoutErr{}, Timeout},
		{"conn refused", syscall.ECONNREFUSED, ConnectionFailure},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), ConnectionFailure},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("boom")}, ConnectionFailure},
		{"no space", syscall.ENOSPC, ResourceExhausted},
		{"json syntax", syntaxErr, DataFormatError},
		{"validation", &entity.ValidationError{Field: "f", Message: "m"}, DataFormatError},
		{"explicit", New(RateLimited, errors.New("slow down")), RateLimited},
		{"plain", errors.New("boom"), Unknown},
		{"http 401", &HTTPError{StatusCode: 401}, AuthenticationFailure},
		{"http 403", &HTTPError{StatusCode: 403}, PermissionDenied},
		{"http 429", &HTTPError{StatusCode: 429}, RateLimited},
		{"http 408", &HTTPError{StatusCode: 408}, Timeout},
		{"http 504", &HTTPError{StatusCode: 504}, Timeout},
		{"http 503", &HTTPError{StatusCode: 503}, ServiceUnavailable},
		{"http 500", &HTTPError{StatusCode: 500}, ServiceUnavailable},
		{"http 507", &HTTPError{StatusCode: 507}, ResourceExhausted},
		{"http 422", &HTTPError{StatusCode: 422}, DataFormatError},
		{"http 302", &HTTPError{StatusCode: 302}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestKind_Retryable(t *testing.T) {
	retryable := map[Kind]bool{
		Timeout:               true,
		ConnectionFailure:     true,
		RateLimited:           true,
		ServiceUnavailable:    true,
		AuthenticationFailure: false,
		DataFormatError:       false,
		PermissionDenied:      false,
		ResourceExhausted:     false,
		Unknown:               false,
	}
	for _, k := range Kinds {
		if got := k.Retryable(); got != retryable[k] {
			t.Errorf("%s.Retryable() = %v, want %v", k, got, retryable[k])
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil error should not be retryable")
	}
	if !IsRetryable(&HTTPError{StatusCode: 503}) {
		t.Error("503 should be retryable")
	}
	if IsRetryable(&HTTPError{StatusCode: 401}) {
		t.Error("401 should not be retryable")
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want entity.Severity
	}{
		{"auth", &HTTPError{StatusCode: 401}, entity.SeverityHigh},
		{"permission", &HTTPError{StatusCode: 403}, entity.SeverityHigh},
		{"timeout", context.DeadlineExceeded, entity.SeverityMedium},
		{"connection", syscall.ECONNREFUSED, entity.SeverityMedium},
		{"unclassified", errors.New("boom"), entity.SeverityMedium},
		{"critical timeout", Critical(context.DeadlineExceeded), entity.SeverityCritical},
		{"wrapped critical", fmt.Errorf("db: %w", Critical(&HTTPError{StatusCode: 401})), entity.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SeverityOf(tt.err); got != tt.want {
				t.Errorf("SeverityOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCritical_PreservesKind(t *testing.T) {
	err := Critical(&HTTPError{StatusCode: 429})
	if got := Classify(err); got != RateLimited {
		t.Errorf("Classify(Critical(429)) = %s, want rate_limited", got)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Error("Critical should keep the wrapped error reachable")
	}
	if Critical(nil) != nil {
		t.Error("Critical(nil) should be nil")
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("rate_limited")
	if err != nil || k != RateLimited {
		t.Errorf("ParseKind(rate_limited) = %s, %v", k, err)
	}
	if _, err := ParseKind("nope"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
