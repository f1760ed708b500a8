package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wesleyorama2/curly/internal/http"
	"github.com/wesleyorama2/curly/internal/stats"
)

// Formatter is responsible for formatting transfers in text format
type Formatter struct {
	Verbose bool
	NoColor bool

	colors *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	colors := DefaultColorScheme()
	if noColor {
		colors = NoColorScheme()
	}
	return &Formatter{Verbose: verbose, NoColor: noColor, colors: colors}
}

// FormatRequest formats a request for display
func (f *Formatter) FormatRequest(req *http.Request) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("▶ REQUEST: %s %s HTTP/%s\n",
		f.colors.Method.Sprint(req.Method()),
		f.colors.URL.Sprint(req.URL()),
		req.HTTPVersion()))

	if lines := req.HeaderLines(); len(lines) > 0 {
		buf.WriteString("  Headers:\n")
		f.writeHeaderLines(&buf, lines)
	}

	if fields := req.Fields(); len(fields) > 0 {
		buf.WriteString("  Fields:\n")
		for _, k := range sortedKeys(fields) {
			buf.WriteString(fmt.Sprintf("    %s=%s\n", k, fields[k]))
		}
	}

	if field, payload := req.Upload(); payload != nil {
		name := payload.Filename
		if field != "" {
			name = field + "=" + name
		}
		buf.WriteString(fmt.Sprintf("  Upload: %s (%d bytes)\n", name, payload.Size()))
	}

	if body := req.Body(); len(body) > 0 {
		buf.WriteString("  Body: ")
		buf.WriteString(formatJSONString(string(body)))
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatResponse formats the outcome of the last execution of req
func (f *Formatter) FormatResponse(req *http.Request) string {
	var buf strings.Builder
	resp := req.Response()
	info := req.TransferInfo()

	if msg := req.ErrorMessage(); msg != "" {
		buf.WriteString(fmt.Sprintf("%s ERROR: %s\n", ErrorIcon(f.NoColor), msg))
	}
	if resp == nil {
		return buf.String()
	}

	statusColor := f.colors.StatusError
	switch {
	case resp.IsSuccess():
		statusColor = f.colors.StatusOK
	case resp.IsRedirect():
		statusColor = f.colors.StatusWarn
	}
	status := resp.StatusLine
	if status == "" {
		status = "(no status line)"
	}

	buf.WriteString(fmt.Sprintf("◀ RESPONSE: %s (%dms)\n",
		statusColor.Sprint(status),
		info.Seconds("total_time").Milliseconds()))

	if f.Verbose {
		timing := NewTimingData(info)
		buf.WriteString("  Timing:\n")
		buf.WriteString(fmt.Sprintf("    DNS Lookup:         %dms\n", timing.DNSLookup))
		buf.WriteString(fmt.Sprintf("    TCP Connection:     %dms\n", timing.TCPConnection))
		buf.WriteString(fmt.Sprintf("    TLS Handshake:      %dms\n", timing.TLSHandshake))
		buf.WriteString(fmt.Sprintf("    Time to First Byte: %dms\n", timing.TimeToFirstByte))
		buf.WriteString(fmt.Sprintf("    Total:              %dms\n", timing.Total))

		if effective := info.Text("effective_url"); effective != "" && effective != req.URL() {
			buf.WriteString(fmt.Sprintf("  Effective URL: %s (%d redirects)\n", effective, info.Int("redirect_count")))
		}

		if len(resp.Headers) > 0 {
			buf.WriteString("  Headers:\n")
			f.writeHeaderLines(&buf, resp.Headers)
		}
	}

	if len(resp.Body) > 0 {
		buf.WriteString("  Body:\n")
		buf.WriteString(formatJSONString(resp.BodyString()))
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatExtracted lists extracted values, one per line
func (f *Formatter) FormatExtracted(values map[string]string) string {
	if len(values) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString(f.colors.Label.Sprint("Extracted:") + "\n")
	for _, k := range sortedKeys(values) {
		buf.WriteString(fmt.Sprintf("  %s = %s\n", k, values[k]))
	}
	return buf.String()
}

// FormatSummary renders latency percentiles of a repeated run
func (f *Formatter) FormatSummary(s stats.Summary) string {
	var buf strings.Builder
	buf.WriteString(f.colors.Label.Sprint("Summary:") + "\n")
	buf.WriteString(fmt.Sprintf("  Requests:  %d (%d succeeded, %d failed)\n", s.Count, s.Succeeded, s.Failed))
	buf.WriteString(fmt.Sprintf("  Received:  %d bytes\n", s.Bytes))
	buf.WriteString(fmt.Sprintf("  Latency:   min %v  mean %v  max %v\n", s.Min, s.Mean, s.Max))
	buf.WriteString(fmt.Sprintf("  Percentiles: p50 %v  p90 %v  p95 %v  p99 %v\n", s.P50, s.P90, s.P95, s.P99))
	return buf.String()
}

func (f *Formatter) writeHeaderLines(buf *strings.Builder, lines []string) {
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			buf.WriteString("    " + line + "\n")
			continue
		}
		buf.WriteString(fmt.Sprintf("    %s:%s\n", f.colors.HeaderKey.Sprint(name), value))
	}
}

// formatJSONString attempts to pretty-print a JSON string
func formatJSONString(s string) string {
	var prettyJSON bytes.Buffer
	err := json.Indent(&prettyJSON, []byte(s), "  ", "  ")
	if err != nil {
		return s
	}
	return prettyJSON.String()
}
