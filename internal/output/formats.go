package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/curly/internal/http"
	"github.com/wesleyorama2/curly/internal/stats"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// FormatProvider is an interface for different output formatters
type FormatProvider interface {
	FormatRequest(req *http.Request) string
	FormatResponse(req *http.Request) string
	FormatExtracted(values map[string]string) string
	FormatSummary(s stats.Summary) string
}

// RequestData represents the structured data of an HTTP request
type RequestData struct {
	Method      string            `json:"method" yaml:"method"`
	URL         string            `json:"url" yaml:"url"`
	HTTPVersion string            `json:"httpVersion" yaml:"httpVersion"`
	Headers     []string          `json:"headers,omitempty" yaml:"headers,omitempty"`
	Fields      map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Upload      string            `json:"upload,omitempty" yaml:"upload,omitempty"`
	Body        any               `json:"body,omitempty" yaml:"body,omitempty"`
}

// TimingData represents detailed timing information for a transfer
type TimingData struct {
	DNSLookup       int64 `json:"dnsLookupMs" yaml:"dnsLookupMs"`
	TCPConnection   int64 `json:"tcpConnectionMs" yaml:"tcpConnectionMs"`
	TLSHandshake    int64 `json:"tlsHandshakeMs" yaml:"tlsHandshakeMs"`
	TimeToFirstByte int64 `json:"timeToFirstByteMs" yaml:"timeToFirstByteMs"`
	Total           int64 `json:"totalMs" yaml:"totalMs"`
}

// ResponseData represents the structured data of a completed execution
type ResponseData struct {
	Succeeded    bool       `json:"succeeded" yaml:"succeeded"`
	Error        string     `json:"error,omitempty" yaml:"error,omitempty"`
	StatusCode   int        `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	StatusLine   string     `json:"status,omitempty" yaml:"status,omitempty"`
	Version      string     `json:"version,omitempty" yaml:"version,omitempty"`
	EffectiveURL string     `json:"effectiveUrl,omitempty" yaml:"effectiveUrl,omitempty"`
	Headers      []string   `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body         any        `json:"body,omitempty" yaml:"body,omitempty"`
	Size         int64      `json:"sizeDownload" yaml:"sizeDownload"`
	Timing       TimingData `json:"timing" yaml:"timing"`
}

// SummaryData is the serialized form of a repeat summary, durations in ms.
type SummaryData struct {
	Count     int64   `json:"count" yaml:"count"`
	Succeeded int64   `json:"succeeded" yaml:"succeeded"`
	Failed    int64   `json:"failed" yaml:"failed"`
	Bytes     int64   `json:"bytes" yaml:"bytes"`
	Min       float64 `json:"minMs" yaml:"minMs"`
	Mean      float64 `json:"meanMs" yaml:"meanMs"`
	Max       float64 `json:"maxMs" yaml:"maxMs"`
	P50       float64 `json:"p50Ms" yaml:"p50Ms"`
	P90       float64 `json:"p90Ms" yaml:"p90Ms"`
	P95       float64 `json:"p95Ms" yaml:"p95Ms"`
	P99       float64 `json:"p99Ms" yaml:"p99Ms"`
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// NewRequestData captures the configuration of req.
func NewRequestData(req *http.Request) RequestData {
	data := RequestData{
		Method:      req.Method(),
		URL:         req.URL(),
		HTTPVersion: req.HTTPVersion(),
		Headers:     req.HeaderLines(),
		Body:        decodeBody(req.Body()),
	}
	if fields := req.Fields(); len(fields) > 0 {
		data.Fields = fields
	}
	if field, payload := req.Upload(); payload != nil {
		data.Upload = fmt.Sprintf("%s (%d bytes)", payload.Filename, payload.Size())
		if field != "" {
			data.Upload = field + "=" + data.Upload
		}
	}
	return data
}

// NewTimingData converts transfer info timings to milliseconds.
func NewTimingData(info http.TransferInfo) TimingData {
	connect := info.Seconds("connect_time")
	return TimingData{
		DNSLookup:       info.Seconds("namelookup_time").Milliseconds(),
		TCPConnection:   (connect - info.Seconds("namelookup_time")).Milliseconds(),
		TLSHandshake:    max(info.Seconds("appconnect_time")-connect, 0).Milliseconds(),
		TimeToFirstByte: info.Seconds("starttransfer_time").Milliseconds(),
		Total:           info.Seconds("total_time").Milliseconds(),
	}
}

// NewResponseData captures the outcome of the last execution of req.
func NewResponseData(req *http.Request) ResponseData {
	info := req.TransferInfo()
	data := ResponseData{
		Succeeded:    req.Succeeded(),
		Error:        req.ErrorMessage(),
		EffectiveURL: info.Text("effective_url"),
		Size:         info.Int("size_download"),
		Timing:       NewTimingData(info),
	}
	if resp := req.Response(); resp != nil {
		data.StatusCode = resp.StatusCode
		data.StatusLine = resp.StatusLine
		data.Version = resp.Version
		data.Headers = resp.Headers
		data.Body = decodeBody(resp.Body)
	}
	return data
}

// NewSummaryData converts a latency summary for serialization.
func NewSummaryData(s stats.Summary) SummaryData {
	return SummaryData{
		Count:     s.Count,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Bytes:     s.Bytes,
		Min:       millis(s.Min),
		Mean:      millis(s.Mean),
		Max:       millis(s.Max),
		P50:       millis(s.P50),
		P90:       millis(s.P90),
		P95:       millis(s.P95),
		P99:       millis(s.P99),
	}
}

// decodeBody returns parsed JSON when body is JSON, the text otherwise.
func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return string(body)
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

func (f *JSONFormatter) marshal(v any) string {
	var out []byte
	var err error
	if f.Pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(out) + "\n"
}

// FormatRequest formats a request as JSON
func (f *JSONFormatter) FormatRequest(req *http.Request) string {
	return f.marshal(map[string]RequestData{"request": NewRequestData(req)})
}

// FormatResponse formats the last execution of req as JSON
func (f *JSONFormatter) FormatResponse(req *http.Request) string {
	return f.marshal(map[string]ResponseData{"response": NewResponseData(req)})
}

// FormatExtracted formats extracted values as JSON
func (f *JSONFormatter) FormatExtracted(values map[string]string) string {
	return f.marshal(map[string]map[string]string{"extracted": values})
}

// FormatSummary formats a repeat summary as JSON
func (f *JSONFormatter) FormatSummary(s stats.Summary) string {
	return f.marshal(map[string]SummaryData{"summary": NewSummaryData(s)})
}

// YAMLFormatter formats output as YAML documents
type YAMLFormatter struct{}

func (f *YAMLFormatter) marshal(v any) string {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %s\n", err)
	}
	return "---\n" + string(out)
}

// FormatRequest formats a request as YAML
func (f *YAMLFormatter) FormatRequest(req *http.Request) string {
	return f.marshal(map[string]RequestData{"request": NewRequestData(req)})
}

// FormatResponse formats the last execution of req as YAML
func (f *YAMLFormatter) FormatResponse(req *http.Request) string {
	return f.marshal(map[string]ResponseData{"response": NewResponseData(req)})
}

// FormatExtracted formats extracted values as YAML
func (f *YAMLFormatter) FormatExtracted(values map[string]string) string {
	return f.marshal(map[string]map[string]string{"extracted": values})
}

// FormatSummary formats a repeat summary as YAML
func (f *YAMLFormatter) FormatSummary(s stats.Summary) string {
	return f.marshal(map[string]SummaryData{"summary": NewSummaryData(s)})
}

// GetFormatter returns the appropriate formatter for the given format
func GetFormatter(format OutputFormat, verbose bool, noColor bool) FormatProvider {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Pretty: true}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return NewFormatter(verbose, noColor)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
