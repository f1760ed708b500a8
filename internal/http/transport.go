package http

import (
	"context"
	"crypto/tls"
	"io"
	"math"
	"time"
)

// Transport is the engine that performs transfers. Each execution opens one
// Handle and closes it when the transfer is over.
type Transport interface {
	Open() (Handle, error)
	SupportsHTTP2() bool
}

// Handle is an exclusively owned transfer handle. Perform runs one blocking
// transfer; Close releases the handle and drops the hooks it holds.
type Handle interface {
	Perform(ctx context.Context, t *Transfer) TransferResult
	Close() error
}

// HeaderFunc receives one raw response header line per call, including the
// status line.
type HeaderFunc func(line string)

// WriteFunc receives one response body fragment per call, in arrival order.
type WriteFunc func(chunk []byte)

// Body is the request body handed to a transport. Exactly one of Data and
// Reader is set; Reader is used for streamed uploads and is never rewound.
type Body struct {
	Data        []byte
	Reader      io.Reader
	Length      int64
	ContentType string
	Streamed    bool
}

// TLSVersion selects a minimum TLS protocol version. Zero keeps the
// transport default.
type TLSVersion uint16

var tlsVersions = map[string]TLSVersion{
	"1.0": tls.VersionTLS10,
	"1.1": tls.VersionTLS11,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// ParseTLSVersion maps "1.0" through "1.3" to a TLSVersion. The empty string
// is the transport default.
func ParseTLSVersion(s string) (TLSVersion, error) {
	if s == "" {
		return 0, nil
	}
	v, ok := tlsVersions[s]
	if !ok {
		return 0, configError("tls-version", s, ErrInvalidConfiguration, "unknown TLS version")
	}
	return v, nil
}

// TLSOptions relaxes certificate checks and sets the minimum TLS version.
// The zero value verifies both the peer chain and the host name.
type TLSOptions struct {
	SkipPeerVerify bool
	SkipHostVerify bool
	Version        TLSVersion
}

// Transfer is the fully resolved description of one request.
type Transfer struct {
	Method          string
	URL             string
	HeaderLines     []string
	Body            *Body
	NoBody          bool
	HTTPVersion     string
	Username        string
	Password        string
	UserAgent       string
	Referer         string
	TLS             TLSOptions
	Proxy           string
	Timeout         time.Duration
	FollowRedirects bool
	MaxRedirects    int

	OnHeader HeaderFunc
	OnWrite  WriteFunc
}

// TransferResult reports the outcome of Perform. Info is filled even when Err
// is set.
type TransferResult struct {
	Err  error
	Info TransferInfo
}

// TransferInfo holds post-transfer metadata: timings in seconds, sizes in
// bytes and the effective URL.
type TransferInfo map[string]any

// Get returns the value stored under key, or nil.
func (i TransferInfo) Get(key string) any {
	if i == nil {
		return nil
	}
	return i[key]
}

// Seconds returns a timing entry as a duration.
func (i TransferInfo) Seconds(key string) time.Duration {
	if v, ok := i.Get(key).(float64); ok {
		return time.Duration(math.Round(v * float64(time.Second)))
	}
	return 0
}

// Int returns an integer entry.
func (i TransferInfo) Int(key string) int64 {
	switch v := i.Get(key).(type) {
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

// Text returns a string entry.
func (i TransferInfo) Text(key string) string {
	s, _ := i.Get(key).(string)
	return s
}
