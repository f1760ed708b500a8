package http

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Execute runs the configured transfer and blocks until it completes.
//
// The boolean result is true when the transport reported no failure or
// delivered any body. Transport failures are not returned as errors; they are
// available through ErrorMessage and Err. The error result is reserved for
// lifecycle misuse and wraps ErrResourceState. A nil ctx behaves like
// context.Background.
func (r *Request) Execute(ctx context.Context) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !r.initialized || r.transport == nil {
		return false, fmt.Errorf("%w: request was not created with NewRequest", ErrResourceState)
	}
	switch r.state {
	case stateUnconfigured:
		return false, fmt.Errorf("%w: no URL configured", ErrResourceState)
	case stateExecuting:
		return false, fmt.Errorf("%w: request is already executing", ErrResourceState)
	case stateCompleted, stateFailed:
		return false, fmt.Errorf("%w: request already executed, call Reset to run it again", ErrResourceState)
	}

	r.state = stateExecuting
	defer func() {
		if r.state == stateExecuting {
			r.state = stateFailed
		}
	}()

	opts := r.prepare()
	acc := &accumulator{}
	transfer, closer, err := transferFromOptions(opts)
	if err != nil {
		r.finish(acc, TransferResult{Err: err, Info: TransferInfo{"url": opts.string(OptURL)}}, transfer)
		return false, nil
	}
	defer closer.Close()

	transfer.OnHeader = acc.headerLine
	transfer.OnWrite = acc.write

	r.logger.Debug("executing transfer",
		zap.String("method", transfer.Method),
		zap.String("url", transfer.URL),
		zap.String("http_version", transfer.HTTPVersion),
		zap.Bool("follow_redirects", transfer.FollowRedirects),
		zap.Int("max_redirects", transfer.MaxRedirects),
		zap.Duration("timeout", transfer.Timeout),
		zap.Bool("streamed_upload", transfer.Body != nil && transfer.Body.Streamed),
		zap.Strings("options", opts.keys()))

	handle, err := r.transport.Open()
	if err != nil {
		r.finish(acc, TransferResult{Err: fmt.Errorf("opening transfer handle: %w", err)}, transfer)
		return r.succeeded(acc), nil
	}
	result := r.perform(ctx, handle, transfer)
	r.finish(acc, result, transfer)
	return r.succeeded(acc), nil
}

// perform runs the transfer and always releases the handle afterwards, even
// when the transport panics.
func (r *Request) perform(ctx context.Context, handle Handle, t *Transfer) TransferResult {
	defer func() {
		t.OnHeader = nil
		t.OnWrite = nil
		if err := handle.Close(); err != nil {
			r.logger.Warn("closing transfer handle", zap.Error(err))
		}
	}()
	return handle.Perform(ctx, t)
}

func (r *Request) finish(acc *accumulator, result TransferResult, t *Transfer) {
	r.response = acc.response()
	r.info = result.Info
	if r.info == nil {
		r.info = TransferInfo{}
	}
	if result.Err == nil {
		r.state = stateCompleted
		r.logger.Debug("transfer completed",
			zap.Int("status", r.response.StatusCode),
			zap.Int("body_bytes", len(r.response.Body)),
			zap.Duration("total_time", r.info.Seconds("total_time")))
		return
	}

	r.state = stateFailed
	r.errMsg = result.Err.Error()
	method, target := r.method, r.url
	if t != nil {
		method, target = t.Method, t.URL
	}
	r.err = &TransferError{Method: method, URL: target, Cause: result.Err}
	r.logger.Warn("transfer failed",
		zap.String("method", method),
		zap.String("url", target),
		zap.Error(result.Err))
}

func (r *Request) succeeded(acc *accumulator) bool {
	return r.err == nil || len(acc.body) > 0
}

// prepare merges the typed configuration into a copy of the option table.
// Raw options set earlier win over derived ones.
func (r *Request) prepare() optionTable {
	opts := r.options.clone()

	follow := r.canFollow && r.allowRedirects
	maxRedirects := r.maxRedirects
	if !follow {
		maxRedirects = 0
	}
	opts.add(OptFollowLocation, follow)
	opts.add(OptMaxRedirs, maxRedirects)

	if r.timeout > 0 {
		opts.add(OptTimeout, r.timeout)
	} else if r.timeoutMS > 0 {
		opts.add(OptTimeoutMS, r.timeoutMS)
	}

	opts.add(OptCustomRequest, r.method)
	opts.add(OptURL, r.url)
	opts.add(OptHTTPHeader, r.HeaderLines())
	if r.userAgent != "" {
		opts.add(OptUserAgent, r.userAgent)
	}
	if r.referer != "" {
		opts.add(OptReferer, r.referer)
	}
	opts.add(OptHTTPVersion, r.version)
	if r.hasCreds {
		opts.add(OptUserPwd, r.username+":"+r.password)
	}

	switch r.method {
	case "HEAD":
		opts.add(OptNoBody, true)
	case "GET":
		opts.add(OptHTTPGet, true)
	}

	if plan, ok := r.planBody(); ok {
		opts.add(OptPostFields, plan)
	}
	return opts
}

// transferFromOptions resolves an option table into a Transfer.
func transferFromOptions(opts optionTable) (*Transfer, io.Closer, error) {
	t := &Transfer{
		Method:          strings.ToUpper(opts.string(OptCustomRequest)),
		URL:             opts.string(OptURL),
		HeaderLines:     opts.lines(OptHTTPHeader),
		NoBody:          opts.bool(OptNoBody),
		HTTPVersion:     opts.string(OptHTTPVersion),
		UserAgent:       opts.string(OptUserAgent),
		Referer:         opts.string(OptReferer),
		Proxy:           opts.string(OptProxy),
		FollowRedirects: opts.bool(OptFollowLocation),
		MaxRedirects:    opts.int(OptMaxRedirs),
	}
	if t.Method == "" {
		t.Method = "GET"
	}
	if !t.FollowRedirects {
		t.MaxRedirects = 0
	}

	if secs := opts.int(OptTimeout); secs > 0 {
		t.Timeout = time.Duration(secs) * time.Second
	} else if ms := opts.int(OptTimeoutMS); ms > 0 {
		t.Timeout = time.Duration(ms) * time.Millisecond
	}

	if _, ok := opts[OptSSLVerifyPeer]; ok {
		t.TLS.SkipPeerVerify = !opts.bool(OptSSLVerifyPeer)
	}
	if _, ok := opts[OptSSLVerifyHost]; ok {
		t.TLS.SkipHostVerify = !opts.bool(OptSSLVerifyHost)
	}
	switch v := opts[OptSSLVersion].(type) {
	case TLSVersion:
		t.TLS.Version = v
	case uint16:
		t.TLS.Version = TLSVersion(v)
	case int:
		t.TLS.Version = TLSVersion(v)
	}

	if userpwd := opts.string(OptUserPwd); userpwd != "" {
		t.Username, t.Password, _ = strings.Cut(userpwd, ":")
	}

	if opts.bool(OptHTTPGet) || t.NoBody {
		return t, nopCloser{}, nil
	}
	switch v := opts[OptPostFields].(type) {
	case bodyPlan:
		body, closer, err := v.materialize()
		if err != nil {
			return t, nil, err
		}
		t.Body = body
		return t, closer, nil
	case string:
		t.Body = &Body{Data: []byte(v), Length: int64(len(v)), ContentType: formContentType}
	case []byte:
		t.Body = &Body{Data: v, Length: int64(len(v)), ContentType: formContentType}
	}
	return t, nopCloser{}, nil
}
