package http

import (
	"sort"
	"time"
)

// Option names a transfer setting in the builder's option table. Typed setters
// and SetRawOption both write into the same table.
type Option string

const (
	OptURL            Option = "url"
	OptCustomRequest  Option = "custom_request"
	OptHTTPHeader     Option = "http_header"
	OptHTTPVersion    Option = "http_version"
	OptUserPwd        Option = "userpwd"
	OptUserAgent      Option = "user_agent"
	OptReferer        Option = "referer"
	OptFollowLocation Option = "follow_location"
	OptMaxRedirs      Option = "max_redirs"
	OptTimeout        Option = "timeout"
	OptTimeoutMS      Option = "timeout_ms"
	OptProxy          Option = "proxy"
	OptSSLVerifyPeer  Option = "ssl_verify_peer"
	OptSSLVerifyHost  Option = "ssl_verify_host"
	OptSSLVersion     Option = "ssl_version"
	OptNoBody         Option = "nobody"
	OptHTTPGet        Option = "http_get"
	OptPostFields     Option = "post_fields"
)

// optionTable maps option names to values. Writes through add are
// first-set-wins: an existing entry is never replaced.
type optionTable map[Option]any

// add stores value under key unless the key is already present and reports
// whether the value was stored.
func (t optionTable) add(key Option, value any) bool {
	if _, ok := t[key]; ok {
		return false
	}
	t[key] = value
	return true
}

func (t optionTable) clone() optionTable {
	out := make(optionTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func (t optionTable) keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

func (t optionTable) string(key Option) string {
	switch v := t[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func (t optionTable) bool(key Option) bool {
	switch v := t[key].(type) {
	case bool:
		return v
	case int:
		return v != 0
	}
	return false
}

func (t optionTable) int(key Option) int {
	switch v := t[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case bool:
		if v {
			return 1
		}
	case time.Duration:
		return int(v)
	}
	return 0
}

func (t optionTable) lines(key Option) []string {
	if v, ok := t[key].([]string); ok {
		return v
	}
	return nil
}
