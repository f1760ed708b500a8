package http

import (
	internal "github.com/wesleyorama2/curly/internal/http"
)

type (
	// Request is a single-use, resettable transfer builder.
	Request = internal.Request
	// RequestOption configures NewRequest.
	RequestOption = internal.RequestOption
	// Response is the record of a completed execution.
	Response = internal.Response
	// Payload is an upload source.
	Payload = internal.Payload
	// TransferInfo is post-transfer metadata keyed curl-style.
	TransferInfo = internal.TransferInfo
	// TLSOptions controls certificate verification.
	TLSOptions = internal.TLSOptions
	// TLSVersion is a minimum TLS protocol version.
	TLSVersion = internal.TLSVersion
	// Option names a raw transport option.
	Option = internal.Option
	// Transport performs transfers.
	Transport = internal.Transport
	// Handle is one acquired transfer resource.
	Handle = internal.Handle
	// Transfer is a resolved request handed to a Handle.
	Transfer = internal.Transfer
	// TransferResult is what a Handle reports back.
	TransferResult = internal.TransferResult
	// NetTransport is the net/http based Transport.
	NetTransport = internal.NetTransport
	// ConfigError describes a rejected setter call.
	ConfigError = internal.ConfigError
	// TransferError describes a failed transfer.
	TransferError = internal.TransferError
)

// StreamThreshold is the payload size above which uploads are streamed.
const StreamThreshold = internal.StreamThreshold

var (
	// ErrInvalidConfiguration reports a rejected setter value.
	ErrInvalidConfiguration = internal.ErrInvalidConfiguration
	// ErrUnsupportedFeature reports a setting the transport cannot honor.
	ErrUnsupportedFeature = internal.ErrUnsupportedFeature
	// ErrPolicyViolation reports a setting the environment forbids.
	ErrPolicyViolation = internal.ErrPolicyViolation
	// ErrResourceState reports a call made in the wrong lifecycle state.
	ErrResourceState = internal.ErrResourceState
	// ErrTransportFailure wraps the error of a failed transfer.
	ErrTransportFailure = internal.ErrTransportFailure
	// ErrEmptyBody is returned by SaveBody when there is nothing to write.
	ErrEmptyBody = internal.ErrEmptyBody
)

var (
	// NewRequest creates a request builder.
	NewRequest = internal.NewRequest
	// NewNetTransport creates the net/http backed transport.
	NewNetTransport = internal.NewNetTransport
	// WithTransport sets the transport a request executes on.
	WithTransport = internal.WithTransport
	// WithLogger sets the request logger.
	WithLogger = internal.WithLogger
	// WithRedirectsPermitted overrides whether redirects may be followed.
	WithRedirectsPermitted = internal.WithRedirectsPermitted
	// BytesPayload wraps an in-memory upload.
	BytesPayload = internal.BytesPayload
	// FilePayload opens a file as an upload.
	FilePayload = internal.FilePayload
	// ParseTLSVersion maps "1.0" through "1.3" to a TLSVersion.
	ParseTLSVersion = internal.ParseTLSVersion
)
