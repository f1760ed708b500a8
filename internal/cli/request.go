package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/curly/internal/http"
	"github.com/wesleyorama2/curly/internal/output"
)

// requestOptions holds the flags that configure one transfer.
type requestOptions struct {
	method      string
	headers     []string
	data        string
	fields      []string
	uploadFile  string
	uploadField string
	httpVersion string
	location    bool
	maxRedirs   int
	proxy       string
	insecure    bool
	tlsVersion  string
	timeout     time.Duration
	userAgent   string
	referer     string

	outputs outputOptions
}

// outputOptions holds the flags that act on the result.
type outputOptions struct {
	save    string
	extract []string
	schema  string
	repeat  int
	format  string
	verbose bool
}

func newRequestCmd() *cobra.Command {
	opts := &requestOptions{}
	cmd := &cobra.Command{
		Use:   "request URL",
		Short: "Perform a transfer to the specified URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("request") {
				opts.method = opts.implicitMethod()
			}
			return opts.run(cmd, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.method, "request", "X", "GET", "Request method")
	addRequestFlags(cmd, opts)
	return cmd
}

func newVerbCmd(method string) *cobra.Command {
	opts := &requestOptions{method: method}
	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " URL",
		Short: fmt.Sprintf("Make a %s request to the specified URL", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args[0])
		},
	}
	addRequestFlags(cmd, opts)
	return cmd
}

func addRequestFlags(cmd *cobra.Command, o *requestOptions) {
	f := cmd.Flags()
	f.StringArrayVarP(&o.headers, "header", "H", nil, "Header \"Name: value\" (repeatable; a repeated name sends several lines)")
	f.StringVarP(&o.data, "data", "d", "", "Raw request body, or @file to read it from a file")
	f.StringArrayVarP(&o.fields, "form", "F", nil, "Form field name=value (repeatable)")
	f.StringVarP(&o.uploadFile, "upload-file", "T", "", "File to upload")
	f.StringVar(&o.uploadField, "upload-field", "", "Send the upload as a multipart part with this name")
	f.StringVar(&o.httpVersion, "http", "", "HTTP version: 1.0, 1.1 or 2.0")
	f.BoolVarP(&o.location, "location", "L", false, "Follow redirects")
	f.IntVar(&o.maxRedirs, "max-redirs", 3, "Maximum redirects to follow with --location")
	f.StringVarP(&o.proxy, "proxy", "x", "", "Proxy URL (http, https or socks5)")
	f.BoolVarP(&o.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	f.StringVar(&o.tlsVersion, "tls-min", "", "Minimum TLS version: 1.0 to 1.3")
	f.DurationVarP(&o.timeout, "timeout", "t", 0, "Transfer timeout (0 means none)")
	f.StringVarP(&o.userAgent, "user-agent", "A", "", "User-Agent header")
	f.StringVarP(&o.referer, "referer", "e", "", "Referer header")

	addOutputFlags(cmd, &o.outputs)
}

func addOutputFlags(cmd *cobra.Command, o *outputOptions) {
	f := cmd.Flags()
	f.StringVarP(&o.save, "output", "o", "", "Write the response body to a file")
	f.StringArrayVar(&o.extract, "extract", nil, "Extract name=$.json.path from the response body (repeatable)")
	f.StringVar(&o.schema, "schema", "", "Validate the response body against a JSON Schema file")
	f.IntVar(&o.repeat, "repeat", 1, "Run the transfer N times in sequence and summarize latencies")
	f.StringVar(&o.format, "format", "text", "Output format: text, json or yaml")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Show the request, timings and response headers")
}

// implicitMethod follows curl: an upload without a field name is a PUT, a
// body or form fields make a POST.
func (o *requestOptions) implicitMethod() string {
	switch {
	case o.uploadFile != "" && o.uploadField == "":
		return "PUT"
	case o.data != "" || len(o.fields) > 0 || o.uploadFile != "":
		return "POST"
	default:
		return o.method
	}
}

func (o *requestOptions) run(cmd *cobra.Command, target string) error {
	logger := loggerFor(cmd)
	defer func() { _ = logger.Sync() }()

	extract, err := parsePairs(o.outputs.extract, "=")
	if err != nil {
		return fmt.Errorf("invalid --extract: %w", err)
	}

	return runPlan(cmd, plan{
		build:   func() (*http.Request, error) { return o.build(target, logger) },
		extract: extract,
		schema:  o.outputs.schema,
		outputs: o.outputs,
	}, logger)
}

// build creates a fresh builder from the flags.
func (o *requestOptions) build(target string, logger *zap.Logger) (*http.Request, error) {
	req := http.NewRequest(http.WithLogger(logger))

	if err := req.SetURL(normalizeURL(target)); err != nil {
		return nil, err
	}
	if err := req.SetMethod(o.method); err != nil {
		return nil, err
	}
	if o.httpVersion != "" {
		if err := req.SetHTTPVersion(o.httpVersion); err != nil {
			return nil, err
		}
	}

	names, values, err := parseHeaders(o.headers)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		req.WithHeader(name, values[name]...)
	}

	if o.data != "" {
		body, err := readData(o.data)
		if err != nil {
			return nil, err
		}
		req.WithBody(body)
	}

	fields, err := parsePairs(o.fields, "=")
	if err != nil {
		return nil, fmt.Errorf("invalid --form: %w", err)
	}
	req.WithFields(fields)

	if o.uploadFile != "" {
		payload, err := http.FilePayload(o.uploadFile)
		if err != nil {
			return nil, err
		}
		req.WithUpload(o.uploadField, payload)
	}

	req.WithTimeout(o.timeout)

	if o.location {
		if err := req.SetAllowRedirects(o.maxRedirs); err != nil {
			return nil, err
		}
	}
	if o.proxy != "" {
		req.WithProxy(o.proxy)
	}
	if o.insecure || o.tlsVersion != "" {
		v, err := http.ParseTLSVersion(o.tlsVersion)
		if err != nil {
			return nil, err
		}
		req.WithTLS(http.TLSOptions{SkipPeerVerify: o.insecure, SkipHostVerify: o.insecure, Version: v})
	}
	if o.userAgent != "" {
		req.WithUserAgent(o.userAgent)
	}
	if o.referer != "" {
		req.WithReferer(o.referer)
	}

	return req, nil
}

// normalizeURL adds http:// when the URL has no scheme.
func normalizeURL(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + raw
}

// parseHeaders groups "Name: value" flags by name, keeping first-seen order.
func parseHeaders(raw []string) ([]string, map[string][]string, error) {
	var names []string
	values := make(map[string][]string)
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("invalid header %q, want \"Name: value\"", h)
		}
		if _, seen := values[name]; !seen {
			names = append(names, name)
		}
		values[name] = append(values[name], strings.TrimSpace(value))
	}
	return names, values, nil
}

// parsePairs splits key<sep>value arguments.
func parsePairs(raw []string, sep string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, pair := range raw {
		key, value, ok := strings.Cut(pair, sep)
		if !ok || key == "" {
			return nil, fmt.Errorf("%q is not key%svalue", pair, sep)
		}
		out[key] = value
	}
	return out, nil
}

func readData(data string) ([]byte, error) {
	if path, ok := strings.CutPrefix(data, "@"); ok {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading body file: %w", err)
		}
		return body, nil
	}
	return []byte(data), nil
}

func formatterFor(cmd *cobra.Command, o outputOptions) (output.FormatProvider, bool, error) {
	format, err := output.ParseFormat(o.format)
	if err != nil {
		return nil, false, err
	}
	noColor, _ := cmd.Flags().GetBool("no-color")
	if f, ok := cmd.OutOrStdout().(*os.File); !ok || !output.ColorEnabled(f, noColor) {
		noColor = true
	}
	return output.GetFormatter(format, o.verbose, noColor), noColor, nil
}
