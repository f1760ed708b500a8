package http

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SupportedMethods lists the request methods accepted by SetMethod.
var SupportedMethods = []string{"GET", "POST", "HEAD", "PUT", "DELETE", "PATCH", "OPTIONS"}

// SupportedVersions lists the protocol versions accepted by SetHTTPVersion.
var SupportedVersions = []string{"1.0", "1.1", "2.0"}

// EnvNoFollow, when set to a non-empty value, forbids following redirects for
// every builder created afterwards.
const EnvNoFollow = "CURLY_NO_FOLLOW"

const defaultMaxRedirects = 3

type state int

const (
	stateUnconfigured state = iota
	stateConfigured
	stateExecuting
	stateCompleted
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateUnconfigured:
		return "unconfigured"
	case stateConfigured:
		return "configured"
	case stateExecuting:
		return "executing"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// Request accumulates the configuration of a single HTTP transfer and runs it.
//
// A Request is single-shot: after Execute it must be Reset before it can run
// again. It is not safe for concurrent use; use one Request per logical
// request.
type Request struct {
	transport   Transport
	logger      *zap.Logger
	canFollow   bool
	initialized bool

	url      string
	username string
	password string
	hasCreds bool

	method  string
	version string

	headerOrder []string
	headers     map[string][]string

	body        []byte
	fields      map[string]string
	upload      *Payload
	uploadField string

	timeout        int
	timeoutMS      int
	allowRedirects bool
	maxRedirects   int
	userAgent      string
	referer        string

	options optionTable

	state    state
	response *Response
	info     TransferInfo
	errMsg   string
	err      error
}

// RequestOption configures a Request at construction time.
type RequestOption func(*Request)

// WithTransport sets the transport used by Execute.
func WithTransport(t Transport) RequestOption {
	return func(r *Request) {
		r.transport = t
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) RequestOption {
	return func(r *Request) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRedirectsPermitted overrides the environment redirect policy.
func WithRedirectsPermitted(permitted bool) RequestOption {
	return func(r *Request) {
		r.canFollow = permitted
	}
}

// RedirectsPermitted reports whether the process environment allows
// following redirects.
func RedirectsPermitted() bool {
	return os.Getenv(EnvNoFollow) == ""
}

// NewRequest creates an unconfigured GET request over HTTP/1.1.
func NewRequest(options ...RequestOption) *Request {
	r := &Request{
		logger:       zap.NewNop(),
		canFollow:    RedirectsPermitted(),
		initialized:  true,
		method:       "GET",
		version:      "1.1",
		headers:      make(map[string][]string),
		fields:       make(map[string]string),
		maxRedirects: defaultMaxRedirects,
		options:      make(optionTable),
	}
	for _, option := range options {
		option(r)
	}
	if r.transport == nil {
		r.transport = NewNetTransport()
	}
	return r
}

// SetURL validates and stores an absolute URL. Embedded user information is
// kept as request credentials.
func (r *Request) SetURL(raw string) error {
	if strings.ContainsAny(raw, " \t\r\n") {
		return configError("url", raw, ErrInvalidConfiguration, "contains whitespace")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return configError("url", raw, ErrInvalidConfiguration, "%v", err)
	}
	if !u.IsAbs() || u.Hostname() == "" {
		return configError("url", raw, ErrInvalidConfiguration, "not an absolute URL")
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return configError("url", raw, ErrInvalidConfiguration, "unsupported scheme %q", u.Scheme)
	}
	if u.Port() != "" {
		for _, c := range u.Port() {
			if c < '0' || c > '9' {
				return configError("url", raw, ErrInvalidConfiguration, "invalid port")
			}
		}
	}

	r.url = raw
	r.username, r.password, r.hasCreds = "", "", false
	if u.User != nil {
		r.username = u.User.Username()
		r.password, _ = u.User.Password()
		r.hasCreds = r.username != ""
	}
	if r.state == stateUnconfigured {
		r.state = stateConfigured
	}
	return nil
}

// SetMethod sets the request method. The name is matched case-insensitively.
func (r *Request) SetMethod(method string) error {
	m := strings.ToUpper(strings.TrimSpace(method))
	for _, supported := range SupportedMethods {
		if m == supported {
			r.method = m
			return nil
		}
	}
	return configError("method", method, ErrInvalidConfiguration,
		"method can only be %s", strings.Join(SupportedMethods, ", "))
}

// SetHTTPVersion selects the protocol version: 1.0, 1.1 or 2.0.
func (r *Request) SetHTTPVersion(version string) error {
	supported := false
	for _, v := range SupportedVersions {
		if v == version {
			supported = true
			break
		}
	}
	if !supported {
		return configError("http version", version, ErrInvalidConfiguration,
			"protocol can only be %s", strings.Join(SupportedVersions, ", "))
	}
	if version == "2.0" && (r.transport == nil || !r.transport.SupportsHTTP2()) {
		return configError("http version", version, ErrUnsupportedFeature, "transport has no HTTP/2 support")
	}
	r.version = version
	return nil
}

// WithHeader sets a header, replacing any values previously set under the
// same name. Several values produce several header lines. Calling it without
// values removes the header.
func (r *Request) WithHeader(name string, values ...string) *Request {
	if len(values) == 0 {
		if _, ok := r.headers[name]; ok {
			delete(r.headers, name)
			for i, n := range r.headerOrder {
				if n == name {
					r.headerOrder = append(r.headerOrder[:i], r.headerOrder[i+1:]...)
					break
				}
			}
		}
		return r
	}
	if _, ok := r.headers[name]; !ok {
		r.headerOrder = append(r.headerOrder, name)
	}
	r.headers[name] = append([]string(nil), values...)
	return r
}

// WithHeaders merges headers using the WithHeader rule. New names are appended
// in sorted order.
func (r *Request) WithHeaders(headers map[string]string) *Request {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.WithHeader(name, headers[name])
	}
	return r
}

// WithBody sets the raw request body. A non-empty raw body takes precedence
// over uploads and form fields.
func (r *Request) WithBody(body []byte) *Request {
	r.body = body
	return r
}

// WithBodyString is WithBody for strings.
func (r *Request) WithBodyString(body string) *Request {
	r.body = []byte(body)
	return r
}

// SetJSONBody marshals v as the raw body and sets Content-Type when it is not
// already set.
func (r *Request) SetJSONBody(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return configError("body", "", ErrInvalidConfiguration, "%v", err)
	}
	r.body = data
	if !r.hasHeader("Content-Type") {
		r.WithHeader("Content-Type", "application/json")
	}
	return nil
}

// WithField sets a single form field.
func (r *Request) WithField(key, value string) *Request {
	r.fields[key] = value
	return r
}

// WithFields merges form fields; existing keys are overwritten.
func (r *Request) WithFields(fields map[string]string) *Request {
	for k, v := range fields {
		r.fields[k] = v
	}
	return r
}

// WithUpload attaches a payload. With an empty field name the payload is the
// request body; otherwise it is sent as a multipart file part named field,
// alongside the form fields.
func (r *Request) WithUpload(field string, payload *Payload) *Request {
	r.uploadField = field
	r.upload = payload
	return r
}

// WithTimeout sets the transfer timeout. Negative values clamp to zero, which
// means no limit. Durations with a sub-second part are kept in milliseconds;
// a positive duration under one millisecond becomes one millisecond.
func (r *Request) WithTimeout(d time.Duration) *Request {
	if d < 0 {
		d = 0
	}
	r.timeout, r.timeoutMS = 0, 0
	if d%time.Second == 0 {
		return r.WithTimeoutValue(int(d/time.Second), false)
	}
	ms := int(d / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	return r.WithTimeoutValue(ms, true)
}

// WithTimeoutValue sets the timeout in seconds, or in milliseconds when
// subSecond is true. When both are set the seconds value wins.
func (r *Request) WithTimeoutValue(value int, subSecond bool) *Request {
	if value < 0 {
		value = 0
	}
	if subSecond {
		r.timeoutMS = value
	} else {
		r.timeout = value
	}
	return r
}

// SetAllowRedirects enables following redirects up to maxRedirects hops.
// Negative values clamp to zero.
func (r *Request) SetAllowRedirects(maxRedirects int) error {
	if maxRedirects < 0 {
		maxRedirects = 0
	}
	if !r.canFollow {
		return configError("redirects", "", ErrPolicyViolation,
			"following redirects is disabled in this environment (%s)", EnvNoFollow)
	}
	r.allowRedirects = true
	r.maxRedirects = maxRedirects
	return nil
}

// WithProxy routes the transfer through proxyURL (http, https or socks5).
// The first proxy set wins.
func (r *Request) WithProxy(proxyURL string) *Request {
	r.options.add(OptProxy, proxyURL)
	return r
}

// WithTLS relaxes certificate verification and sets the minimum TLS version.
// Only the settings that differ from the verifying default are recorded, each
// first-set-wins.
func (r *Request) WithTLS(opts TLSOptions) *Request {
	if opts.SkipPeerVerify {
		r.options.add(OptSSLVerifyPeer, false)
	}
	if opts.SkipHostVerify {
		r.options.add(OptSSLVerifyHost, false)
	}
	if opts.Version != 0 {
		r.options.add(OptSSLVersion, opts.Version)
	}
	return r
}

// WithUserAgent sets the User-Agent header sent with the request.
func (r *Request) WithUserAgent(ua string) *Request {
	r.userAgent = ua
	return r
}

// WithReferer sets the Referer header sent with the request.
func (r *Request) WithReferer(referer string) *Request {
	r.referer = referer
	return r
}

// SetRawOption stores a transport option that has no typed setter. Options
// are first-set-wins: a key that is already set keeps its value, and options
// derived from typed setters at execution time never replace a raw option.
func (r *Request) SetRawOption(key Option, value any) error {
	if !r.initialized {
		return fmt.Errorf("%w: request was not created with NewRequest", ErrResourceState)
	}
	switch r.state {
	case stateExecuting, stateCompleted, stateFailed:
		return fmt.Errorf("%w: cannot set option %q while %s", ErrResourceState, key, r.state)
	}
	if !r.options.add(key, value) {
		r.logger.Warn("option already set, keeping first value",
			zap.String("option", string(key)),
			zap.Any("ignored", value))
	}
	return nil
}

// Reset discards the result of the last execution so the request can run
// again. Configuration is kept.
func (r *Request) Reset() *Request {
	r.response = nil
	r.info = nil
	r.errMsg = ""
	r.err = nil
	if r.url == "" {
		r.state = stateUnconfigured
	} else {
		r.state = stateConfigured
	}
	return r
}

// URL returns the URL exactly as it was set.
func (r *Request) URL() string { return r.url }

// Method returns the normalized request method.
func (r *Request) Method() string { return r.method }

// HTTPVersion returns the selected protocol version.
func (r *Request) HTTPVersion() string { return r.version }

// Credentials returns the user and password taken from the URL.
func (r *Request) Credentials() (user, password string, ok bool) {
	return r.username, r.password, r.hasCreds
}

// Fields returns a copy of the form fields.
func (r *Request) Fields() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Body returns the raw body.
func (r *Request) Body() []byte { return r.body }

// Upload returns the upload payload and its field name.
func (r *Request) Upload() (string, *Payload) { return r.uploadField, r.upload }

// Redirects reports whether following is enabled and the hop limit.
func (r *Request) Redirects() (bool, int) { return r.allowRedirects, r.maxRedirects }

// UserAgent returns the configured User-Agent, or "".
func (r *Request) UserAgent() string { return r.userAgent }

// Referer returns the configured Referer, or "".
func (r *Request) Referer() string { return r.referer }

// Timeout returns the effective timeout; zero means no limit.
func (r *Request) Timeout() time.Duration {
	if r.timeout > 0 {
		return time.Duration(r.timeout) * time.Second
	}
	return time.Duration(r.timeoutMS) * time.Millisecond
}

// Option returns a value from the option table.
func (r *Request) Option(key Option) (any, bool) {
	v, ok := r.options[key]
	return v, ok
}

// HeaderLines renders the configured headers as "Name: value" lines in
// insertion order.
func (r *Request) HeaderLines() []string {
	var lines []string
	for _, name := range r.headerOrder {
		for _, value := range r.headers[name] {
			lines = append(lines, fmt.Sprintf("%s: %s", name, value))
		}
	}
	return lines
}

func (r *Request) hasHeader(name string) bool {
	for n := range r.headers {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Response returns the record of the last execution, or nil.
func (r *Request) Response() *Response { return r.response }

// TransferInfo returns the metadata of the last execution, or nil.
func (r *Request) TransferInfo() TransferInfo { return r.info }

// ErrorMessage returns the transport error of the last execution, or "".
func (r *Request) ErrorMessage() string { return r.errMsg }

// Succeeded reports the result of the last execution, as returned by Execute.
func (r *Request) Succeeded() bool {
	return r.response != nil && (r.err == nil || len(r.response.Body) > 0)
}

// Err returns the transport failure of the last execution wrapped in a
// *TransferError, or nil.
func (r *Request) Err() error { return r.err }

// SaveBody writes the response body to path and returns the number of bytes
// written. An empty body returns ErrEmptyBody and leaves path untouched.
func (r *Request) SaveBody(path string) (int, error) {
	if r.response == nil || len(r.response.Body) == 0 {
		return 0, ErrEmptyBody
	}
	if err := os.WriteFile(path, r.response.Body, 0o644); err != nil {
		return 0, fmt.Errorf("saving body: %w", err)
	}
	return len(r.response.Body), nil
}
