// Package failure classifies errors into a small taxonomy of failure kinds
// shared by the retry executor, the error reporter and the recovery coordinator.
package failure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"jobscout/internal/domain/entity"
)

// Kind tags a failure independently of its Go error type.
type Kind string

const (
	Timeout               Kind = "timeout"
	ConnectionFailure     Kind = "connection_failure"
	RateLimited           Kind = "rate_limited"
	ServiceUnavailable    Kind = "service_unavailable"
	AuthenticationFailure Kind = "authentication_failure"
	DataFormatError       Kind = "data_format_error"
	PermissionDenied      Kind = "permission_denied"
	ResourceExhausted     Kind = "resource_exhausted"
	Unknown               Kind = "unknown"
)

// Kinds lists every known kind.
var Kinds = []Kind{
	Timeout, ConnectionFailure, RateLimited, ServiceUnavailable,
	AuthenticationFailure, DataFormatError, PermissionDenied, ResourceExhausted, Unknown,
}

// String returns the tag of the kind.
func (k Kind) String() string { return string(k) }

// ParseKind returns the kind with the given tag.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return Unknown, fmt.Errorf("unknown failure kind %q", s)
}

// Retryable reports whether failures of this kind are worth another attempt.
func (k Kind) Retryable() bool {
	switch k {
	case Timeout, ConnectionFailure, RateLimited, ServiceUnavailable:
		return true
	default:
		return false
	}
}

// Kinder is implemented by errors that know their own failure kind.
type Kinder interface {
	FailureKind() Kind
}

// Error attaches a kind, and optionally a critical flag, to an underlying error.
type Error struct {
	Kind     Kind
	Err      error
	Critical bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// FailureKind implements Kinder.
func (e *Error) FailureKind() Kind { return e.Kind }

// New wraps err with an explicit kind.
func New(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Critical marks err as critical. The kind is preserved.
func Critical(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: Classify(err), Err: err, Critical: true}
}

// IsCritical reports whether err was marked with Critical.
func IsCritical(err error) bool {
	var fe *Error
	for e := err; errors.As(e, &fe); e = fe.Err {
		if fe.Critical {
			return true
		}
	}
	return false
}

// Classify maps an error to its failure kind.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}

	var kinder Kinder
	if errors.As(err, &kinder) {
		return kinder.FailureKind()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	if errors.Is(err, context.Canceled) {
		return Unknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	if errors.Is(err, syscall.ETIMEDOUT) {
		return Timeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return ConnectionFailure
	}
	if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return PermissionDenied
	}
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENOMEM) {
		return ResourceExhausted
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ConnectionFailure
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnectionFailure
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return DataFormatError
	}

	if errors.Is(err, entity.ErrValidationFailed) || errors.Is(err, entity.ErrInvalidInput) {
		return DataFormatError
	}

	return Unknown
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	return err != nil && Classify(err).Retryable()
}

// SeverityOf returns the default severity for err.
func SeverityOf(err error) entity.Severity {
	if IsCritical(err) {
		return entity.SeverityCritical
	}
	switch Classify(err) {
	case AuthenticationFailure, PermissionDenied:
		return entity.SeverityHigh
	default:
		return entity.SeverityMedium
	}
}

// HTTPError represents a non-2xx response from an upstream service.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// FailureKind maps the status code onto the taxonomy.
func (e *HTTPError) FailureKind() Kind {
	switch code := e.StatusCode; {
	case code == http.StatusUnauthorized:
		return AuthenticationFailure
	case code == http.StatusForbidden:
		return PermissionDenied
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return Timeout
	case code == http.StatusInsufficientStorage:
		return ResourceExhausted
	case code >= 500 && code < 600:
		return ServiceUnavailable
	case code == http.StatusBadRequest, code == http.StatusNotFound, code == http.StatusUnprocessableEntity:
		return DataFormatError
	default:
		return Unknown
	}
}
