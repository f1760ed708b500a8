package http

import (
	"encoding/json"
	"strings"
)

// Response is the record of one completed execution. It is not modified after
// Execute returns.
type Response struct {
	StatusLine string
	Version    string
	StatusCode int
	Headers    []string
	Body       []byte
}

// Value returns a field by its record key: status, version, code, body or
// headers. Unknown keys and unset fields yield nil.
func (r *Response) Value(key string) any {
	if r == nil {
		return nil
	}
	switch key {
	case "status":
		if r.StatusLine == "" {
			return nil
		}
		return r.StatusLine
	case "version":
		if r.Version == "" {
			return nil
		}
		return r.Version
	case "code":
		if r.StatusCode == 0 {
			return nil
		}
		return r.StatusCode
	case "body":
		return string(r.Body)
	case "headers":
		return r.Headers
	}
	return nil
}

// HeaderValues returns the values of every header line named name, compared
// case-insensitively.
func (r *Response) HeaderValues(name string) []string {
	var values []string
	for _, line := range r.Headers {
		key, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), name) {
			continue
		}
		values = append(values, strings.TrimSpace(value))
	}
	return values
}

// Header returns the first value of the named header
func (r *Response) Header(name string) string {
	if values := r.HeaderValues(name); len(values) > 0 {
		return values[0]
	}
	return ""
}

// HeaderMap groups the header lines by name, keeping first-seen name order in
// the returned slice.
func (r *Response) HeaderMap() (map[string][]string, []string) {
	m := make(map[string][]string)
	var order []string
	for _, line := range r.Headers {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, seen := m[key]; !seen {
			order = append(order, key)
		}
		m[key] = append(m[key], strings.TrimSpace(value))
	}
	return m, order
}

// BodyString returns the response body as a string
func (r *Response) BodyString() string {
	return string(r.Body)
}

// BodyJSON unmarshals the response body into the provided value
func (r *Response) BodyJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRedirect returns true if the response status code is in the 3xx range
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// IsClientError returns true if the response status code is in the 4xx range
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError returns true if the response status code is in the 5xx range
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}
