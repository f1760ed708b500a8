package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

const defaultChunkSize = 32 * 1024

// NetTransport performs transfers with net/http. Every handle builds its own
// http.Transport, so nothing is shared between requests.
type NetTransport struct {
	dialer    *net.Dialer
	chunkSize int
	rootCAs   *x509.CertPool
}

// NetTransportOption configures a NetTransport
type NetTransportOption func(*NetTransport)

// WithChunkSize sets the size of the body fragments passed to the write hook.
func WithChunkSize(n int) NetTransportOption {
	return func(t *NetTransport) {
		if n > 0 {
			t.chunkSize = n
		}
	}
}

// WithRootCAs sets the certificate pool used to verify servers. Nil means the
// system pool.
func WithRootCAs(pool *x509.CertPool) NetTransportOption {
	return func(t *NetTransport) {
		t.rootCAs = pool
	}
}

// NewNetTransport creates the default transport.
func NewNetTransport(options ...NetTransportOption) *NetTransport {
	t := &NetTransport{
		dialer: &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		},
		chunkSize: defaultChunkSize,
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// SupportsHTTP2 reports HTTP/2 support, provided by golang.org/x/net/http2.
func (t *NetTransport) SupportsHTTP2() bool {
	return true
}

// Open returns a fresh handle.
func (t *NetTransport) Open() (Handle, error) {
	return &netHandle{owner: t}, nil
}

type netHandle struct {
	owner     *NetTransport
	transport *http.Transport
	closed    atomic.Bool
}

var errHandleClosed = errors.New("transfer handle already closed")

func (h *netHandle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return errHandleClosed
	}
	if h.transport != nil {
		h.transport.CloseIdleConnections()
		h.transport = nil
	}
	return nil
}

func (h *netHandle) Perform(ctx context.Context, tr *Transfer) TransferResult {
	info := TransferInfo{"url": tr.URL}
	if h.closed.Load() {
		return TransferResult{Err: errHandleClosed, Info: info}
	}

	transport, err := h.owner.buildTransport(tr)
	if err != nil {
		return TransferResult{Err: err, Info: info}
	}
	h.transport = transport

	redirects := 0
	client := &http.Client{
		Transport: transport,
		Timeout:   tr.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !tr.FollowRedirects {
				return http.ErrUseLastResponse
			}
			if len(via) > tr.MaxRedirects {
				return fmt.Errorf("maximum (%d) redirects followed", tr.MaxRedirects)
			}
			redirects = len(via)
			return nil
		},
	}

	var uploaded *countingReader
	var bodyReader io.Reader
	if tr.Body != nil && !tr.NoBody {
		if tr.Body.Streamed {
			uploaded = &countingReader{r: tr.Body.Reader}
		} else {
			uploaded = &countingReader{r: bytes.NewReader(tr.Body.Data)}
		}
		bodyReader = uploaded
	}

	req, err := http.NewRequestWithContext(ctx, tr.Method, tr.URL, bodyReader)
	if err != nil {
		return TransferResult{Err: err, Info: info}
	}
	if tr.Body != nil && !tr.NoBody {
		req.ContentLength = tr.Body.Length
		if !tr.Body.Streamed && len(tr.Body.Data) == 0 {
			req.Body = http.NoBody
		} else if !tr.Body.Streamed {
			data := tr.Body.Data
			req.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(data)), nil
			}
		}
	}
	applyHeaders(req, tr)

	timing := &transferTiming{start: time.Now()}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), timing.trace()))

	resp, err := client.Do(req)
	timing.fill(info)
	info["redirect_count"] = redirects
	if uploaded != nil {
		info["size_upload"] = uploaded.n
	}
	if err != nil {
		return TransferResult{Err: unwrapURLError(err), Info: info}
	}
	defer resp.Body.Close()

	info["http_code"] = resp.StatusCode
	info["http_version"] = resp.Proto
	info["content_type"] = resp.Header.Get("Content-Type")
	info["effective_url"] = resp.Request.URL.String()

	if tr.OnHeader != nil {
		tr.OnHeader(resp.Proto + " " + resp.Status)
		names := make([]string, 0, len(resp.Header))
		for name := range resp.Header {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, value := range resp.Header[name] {
				tr.OnHeader(name + ": " + value)
			}
		}
		tr.OnHeader("")
	}

	var downloaded int64
	var readErr error
	if !tr.NoBody && tr.Method != http.MethodHead {
		downloaded, readErr = h.owner.drain(resp.Body, tr.OnWrite)
	}
	info["size_download"] = downloaded
	timing.done(info)
	if readErr != nil {
		return TransferResult{Err: fmt.Errorf("reading response body: %w", unwrapURLError(readErr)), Info: info}
	}
	return TransferResult{Info: info}
}

// drain streams the body to the write hook in fixed-size fragments. The
// fragment slice is reused and must not be retained by the hook.
func (t *NetTransport) drain(body io.Reader, onWrite WriteFunc) (int64, error) {
	buf := make([]byte, t.chunkSize)
	var total int64
	for {
		n, err := body.Read(buf)
		if n > 0 {
			total += int64(n)
			if onWrite != nil {
				onWrite(buf[:n])
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func (t *NetTransport) buildTransport(tr *Transfer) (*http.Transport, error) {
	tlsConfig := &tls.Config{
		MinVersion: uint16(tr.TLS.Version),
		RootCAs:    t.rootCAs,
	}
	switch {
	case tr.TLS.SkipPeerVerify:
		tlsConfig.InsecureSkipVerify = true
	case tr.TLS.SkipHostVerify:
		// Verify the chain but not the host name.
		tlsConfig.InsecureSkipVerify = true
		tlsConfig.VerifyConnection = verifyChainOnly(t.rootCAs)
	}

	transport := &http.Transport{
		DialContext:           t.dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     true,
	}

	if tr.Proxy != "" {
		if err := t.configureProxy(transport, tr.Proxy); err != nil {
			return nil, err
		}
	}

	if tr.HTTPVersion == "2.0" {
		transport.ForceAttemptHTTP2 = true
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, fmt.Errorf("enabling HTTP/2: %w", err)
		}
	} else {
		transport.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)
	}
	return transport, nil
}

func (t *NetTransport) configureProxy(transport *http.Transport, raw string) error {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, t.dialer)
		if err != nil {
			return fmt.Errorf("invalid proxy %q: %w", raw, err)
		}
		if cd, ok := d.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return d.Dial(network, addr)
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
}

func verifyChainOnly(roots *x509.CertPool) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) == 0 {
			return errors.New("tls: no peer certificates")
		}
		opts := x509.VerifyOptions{
			Roots:         roots,
			Intermediates: x509.NewCertPool(),
		}
		for _, cert := range cs.PeerCertificates[1:] {
			opts.Intermediates.AddCert(cert)
		}
		_, err := cs.PeerCertificates[0].Verify(opts)
		return err
	}
}

func applyHeaders(req *http.Request, tr *Transfer) {
	for _, line := range tr.HeaderLines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if strings.EqualFold(name, "Host") {
			req.Host = value
			continue
		}
		req.Header.Add(name, value)
	}
	if tr.Body != nil && !tr.NoBody && tr.Body.ContentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", tr.Body.ContentType)
	}
	if tr.UserAgent != "" {
		req.Header.Set("User-Agent", tr.UserAgent)
	}
	if tr.Referer != "" {
		req.Header.Set("Referer", tr.Referer)
	}
	if tr.Username != "" {
		req.SetBasicAuth(tr.Username, tr.Password)
	}
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// transferTiming captures connection phases the way curl reports them:
// cumulative seconds since the start of the transfer.
type transferTiming struct {
	start        time.Time
	dnsDone      time.Time
	connectDone  time.Time
	tlsDone      time.Time
	firstByte    time.Time
	primaryIP    string
	finishedTime time.Time
}

func (t *transferTiming) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSDone: func(httptrace.DNSDoneInfo) {
			t.dnsDone = time.Now()
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil {
				t.connectDone = time.Now()
			}
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err == nil {
				t.tlsDone = time.Now()
			}
		},
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Conn != nil {
				if host, _, err := net.SplitHostPort(info.Conn.RemoteAddr().String()); err == nil {
					t.primaryIP = host
				}
			}
		},
		GotFirstResponseByte: func() {
			t.firstByte = time.Now()
		},
	}
}

func (t *transferTiming) since(at time.Time) float64 {
	if at.IsZero() {
		return 0
	}
	return at.Sub(t.start).Seconds()
}

func (t *transferTiming) fill(info TransferInfo) {
	info["namelookup_time"] = t.since(t.dnsDone)
	info["connect_time"] = t.since(t.connectDone)
	info["appconnect_time"] = t.since(t.tlsDone)
	info["starttransfer_time"] = t.since(t.firstByte)
	info["primary_ip"] = t.primaryIP
	info["total_time"] = time.Since(t.start).Seconds()
}

func (t *transferTiming) done(info TransferInfo) {
	t.finishedTime = time.Now()
	info["total_time"] = t.since(t.finishedTime)
}
