package http

import (
	"regexp"
	"strconv"
	"strings"
)

var statusLinePattern = regexp.MustCompile(`(?i)^http/([0-9.]+)\s+([0-9]+)`)

// accumulator collects one execution's response. It is owned by Execute and
// handed to the transport hooks only for the duration of the transfer.
type accumulator struct {
	statusLine string
	version    string
	code       int
	headers    []string
	body       []byte
}

// headerLine consumes one raw header line.
func (a *accumulator) headerLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if !strings.HasPrefix(strings.ToLower(line), "http/") {
		a.headers = append(a.headers, line)
		return
	}

	a.statusLine = line
	a.version = ""
	a.code = 0
	m := statusLinePattern.FindStringSubmatch(line)
	if m == nil {
		return
	}
	code, err := strconv.Atoi(m[2])
	if err != nil {
		return
	}
	a.version = m[1]
	a.code = code
}

// write appends a body fragment. Fragments need not align with lines.
func (a *accumulator) write(chunk []byte) {
	a.body = append(a.body, chunk...)
}

func (a *accumulator) response() *Response {
	return &Response{
		StatusLine: a.statusLine,
		Version:    a.version,
		StatusCode: a.code,
		Headers:    a.headers,
		Body:       a.body,
	}
}
