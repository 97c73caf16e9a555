package models

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies failures from external calls and internal guards.
// The kind is the only error detail that crosses the API boundary.
type ErrorKind string

const (
	ErrorKindDNSFailure    ErrorKind = "DNS_FAILURE"
	ErrorKindTimeout       ErrorKind = "TIMEOUT"
	ErrorKindAborted       ErrorKind = "ABORTED"
	ErrorKindUpstreamHTTP  ErrorKind = "UPSTREAM_HTTP_ERROR"
	ErrorKindSchemaInvalid ErrorKind = "SCHEMA_INVALID"
	ErrorKindAuthMissing   ErrorKind = "AUTH_MISSING"
	ErrorKindAuthMismatch  ErrorKind = "AUTH_MISMATCH"
	ErrorKindNotFound      ErrorKind = "NOT_FOUND"
	ErrorKindInternal      ErrorKind = "INTERNAL"
)

// Sentinel errors shared across services.
var (
	// ErrJobNotFound covers every non-disclosable case: unknown id, expired
	// record, ownerless legacy record, and ownership mismatch. Callers must
	// not be able to distinguish between them.
	ErrJobNotFound = errors.New("job not found")

	// ErrSessionRequired is returned when a request reaches the job store
	// without an authenticated session.
	ErrSessionRequired = errors.New("session is required")

	// ErrInvalidRequest is returned when a search request is missing or fails
	// structural validation.
	ErrInvalidRequest = errors.New("invalid search request")

	// ErrKeyNotFound is returned by the key/value store on a cache miss.
	ErrKeyNotFound = errors.New("key not found")
)

// ClassifiedError pairs an error with its taxonomy kind so call sites can
// decide between retry, fallback and terminal failure.
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// NewClassifiedError wraps err with an explicit kind.
func NewClassifiedError(kind ErrorKind, err error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Err: err}
}

// Classify maps an error from an external call (LLM or provider) onto the
// taxonomy. Transport failures are distinguished for observability: DNS
// resolution, timeouts and context aborts each get their own kind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Kind
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorKindDNSFailure
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorKindAborted
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorKindTimeout
	}

	// Some transports flatten errors into strings before they reach us.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such host"):
		return ErrorKindDNSFailure
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "timeout"):
		return ErrorKindTimeout
	case strings.Contains(msg, "context canceled"):
		return ErrorKindAborted
	}

	return ErrorKindInternal
}

// IsRetryable reports whether a classified failure is worth another bounded
// attempt. Schema and auth failures never are; transient transport ones are.
func (k ErrorKind) IsRetryable() bool {
	switch k {
	case ErrorKindTimeout, ErrorKindDNSFailure, ErrorKindUpstreamHTTP:
		return true
	default:
		return false
	}
}
