package http

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned by setters given a malformed URL or
	// an unsupported method or protocol version.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedFeature is returned when the transport cannot provide a
	// requested capability, such as HTTP/2.
	ErrUnsupportedFeature = errors.New("unsupported feature")

	// ErrPolicyViolation is returned when redirects are requested but the
	// environment forbids following them.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrResourceState is returned when the builder is used outside its
	// lifecycle: before initialization, while executing, or after completion
	// without a Reset.
	ErrResourceState = errors.New("invalid resource state")

	// ErrTransportFailure wraps transfer-level failures (DNS, connect, TLS,
	// timeout). It is never returned by Execute; see Request.Err.
	ErrTransportFailure = errors.New("transport failure")

	// ErrEmptyBody is returned by SaveBody when there is nothing to write.
	ErrEmptyBody = errors.New("response body is empty")
)

// ConfigError describes a rejected setter call.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configError(field, value string, kind error, format string, args ...any) error {
	return &ConfigError{
		Field: field,
		Value: value,
		Err:   fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)),
	}
}

// TransferError is the failure reported by a transport for one execution.
type TransferError struct {
	Method string
	URL    string
	Cause  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Cause)
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrTransportFailure, e.Cause}
}
