package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/curly/internal/http"
)

// File is a request file: named environments and named requests. YAML and
// JSON documents are both accepted.
type File struct {
	Environments map[string]Environment `yaml:"environments" json:"environments" validate:"dive"`
	Requests     map[string]Request     `yaml:"requests" json:"requests" validate:"required,min=1,dive"`

	dir string
}

// Environment supplies a base URL, shared headers and {{var}} values.
type Environment struct {
	BaseURL string            `yaml:"baseUrl" json:"baseUrl"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Vars    map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// Request describes one transfer. URL may be relative to the environment's
// base URL.
type Request struct {
	URL         string            `yaml:"url" json:"url" validate:"required"`
	Method      string            `yaml:"method,omitempty" json:"method,omitempty" validate:"omitempty,httpmethod"`
	HTTPVersion string            `yaml:"httpVersion,omitempty" json:"httpVersion,omitempty" validate:"omitempty,oneof=1.0 1.1 2.0"`
	Headers     map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body        string            `yaml:"body,omitempty" json:"body,omitempty" validate:"excluded_with=JSON"`
	JSON        any               `yaml:"json,omitempty" json:"json,omitempty"`
	Fields      map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
	Upload      *Upload           `yaml:"upload,omitempty" json:"upload,omitempty"`
	Timeout     string            `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"omitempty,duration"`
	Proxy       string            `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	Insecure    bool              `yaml:"insecure,omitempty" json:"insecure,omitempty"`
	TLSVersion  string            `yaml:"tlsVersion,omitempty" json:"tlsVersion,omitempty" validate:"omitempty,oneof=1.0 1.1 1.2 1.3"`
	Redirects   *int              `yaml:"followRedirects,omitempty" json:"followRedirects,omitempty" validate:"omitempty,min=0"`
	UserAgent   string            `yaml:"userAgent,omitempty" json:"userAgent,omitempty"`
	Referer     string            `yaml:"referer,omitempty" json:"referer,omitempty"`
	Extract     map[string]string `yaml:"extract,omitempty" json:"extract,omitempty" validate:"dive,required"`
	Schema      string            `yaml:"schema,omitempty" json:"schema,omitempty"`
}

// Upload names a file to send. An empty Field sends the file as the raw
// request body.
type Upload struct {
	File  string `yaml:"file" json:"file" validate:"required"`
	Field string `yaml:"field,omitempty" json:"field,omitempty"`
}

// LoadConfig reads and decodes a request file. It does not validate it.
func LoadConfig(path string) (*File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	file.dir = filepath.Dir(path)

	return &file, nil
}

// RequestNames returns the request names in sorted order.
func (f *File) RequestNames() []string {
	names := make([]string, 0, len(f.Requests))
	for name := range f.Requests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolvePath resolves p against the directory of the request file.
func (f *File) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || f.dir == "" {
		return p
	}
	return filepath.Join(f.dir, p)
}

// Build turns the named request into a configured builder, applying the
// named environment when envName is not empty.
func (f *File) Build(name, envName string, options ...http.RequestOption) (*http.Request, error) {
	def, ok := f.Requests[name]
	if !ok {
		return nil, fmt.Errorf("request not found: %s", name)
	}

	var env Environment
	if envName != "" {
		if env, ok = f.Environments[envName]; !ok {
			return nil, fmt.Errorf("environment not found: %s", envName)
		}
	}
	vars := env.Vars

	target := ProcessEnvironment(def.URL, vars)
	if !strings.Contains(target, "://") {
		if env.BaseURL == "" {
			return nil, fmt.Errorf("request %s: relative url %q needs an environment baseUrl", name, def.URL)
		}
		base := strings.TrimRight(ProcessEnvironment(env.BaseURL, vars), "/")
		target = base + "/" + strings.TrimLeft(target, "/")
	}

	req := http.NewRequest(options...)
	if err := req.SetURL(target); err != nil {
		return nil, fmt.Errorf("request %s: %w", name, err)
	}
	if def.Method != "" {
		if err := req.SetMethod(def.Method); err != nil {
			return nil, fmt.Errorf("request %s: %w", name, err)
		}
	}
	if def.HTTPVersion != "" {
		if err := req.SetHTTPVersion(def.HTTPVersion); err != nil {
			return nil, fmt.Errorf("request %s: %w", name, err)
		}
	}

	req.WithHeaders(ProcessEnvironmentInMap(MergeEnvironments(env.Headers, def.Headers), vars))

	switch {
	case def.JSON != nil:
		if err := req.SetJSONBody(def.JSON); err != nil {
			return nil, fmt.Errorf("request %s: %w", name, err)
		}
	case def.Body != "":
		req.WithBodyString(ProcessEnvironment(def.Body, vars))
	}
	if len(def.Fields) > 0 {
		req.WithFields(ProcessEnvironmentInMap(def.Fields, vars))
	}

	if def.Upload != nil {
		payload, err := http.FilePayload(f.ResolvePath(ProcessEnvironment(def.Upload.File, vars)))
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", name, err)
		}
		req.WithUpload(def.Upload.Field, payload)
	}

	if def.Timeout != "" {
		d, err := parseDurationString(def.Timeout)
		if err != nil {
			return nil, fmt.Errorf("request %s: invalid timeout '%s': %w", name, def.Timeout, err)
		}
		req.WithTimeout(d)
	}
	if def.Proxy != "" {
		req.WithProxy(ProcessEnvironment(def.Proxy, vars))
	}
	if def.Insecure || def.TLSVersion != "" {
		version, err := http.ParseTLSVersion(def.TLSVersion)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", name, err)
		}
		req.WithTLS(http.TLSOptions{SkipPeerVerify: def.Insecure, SkipHostVerify: def.Insecure, Version: version})
	}
	if def.Redirects != nil {
		if err := req.SetAllowRedirects(*def.Redirects); err != nil {
			return nil, fmt.Errorf("request %s: %w", name, err)
		}
	}
	if def.UserAgent != "" {
		req.WithUserAgent(ProcessEnvironment(def.UserAgent, vars))
	}
	if def.Referer != "" {
		req.WithReferer(ProcessEnvironment(def.Referer, vars))
	}

	return req, nil
}

// parseDurationString parses duration strings like "30s", "5m", "1h" and
// the spelled-out forms "30 seconds" or "1 minute".
func parseDurationString(duration string) (time.Duration, error) {
	duration = strings.TrimSpace(duration)
	if duration == "" {
		return 0, fmt.Errorf("duration cannot be empty")
	}

	if d, err := time.ParseDuration(duration); err == nil {
		return d, nil
	}

	duration = strings.ReplaceAll(strings.ToLower(duration), " ", "")

	// Longest words first so "seconds" is not rewritten as "s" + "s".
	for _, r := range []struct{ word, abbrev string }{
		{"seconds", "s"}, {"second", "s"},
		{"minutes", "m"}, {"minute", "m"},
		{"hours", "h"}, {"hour", "h"},
	} {
		duration = strings.ReplaceAll(duration, r.word, r.abbrev)
	}

	return time.ParseDuration(duration)
}

// ProcessEnvironment replaces {{name}} placeholders with values from env.
func ProcessEnvironment(input string, env map[string]string) string {
	result := input
	for key, value := range env {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

// ProcessEnvironmentInMap applies ProcessEnvironment to every value.
func ProcessEnvironmentInMap(input map[string]string, env map[string]string) map[string]string {
	result := make(map[string]string, len(input))
	for key, value := range input {
		result[key] = ProcessEnvironment(value, env)
	}
	return result
}

// MergeEnvironments merges two maps, with the second taking precedence.
func MergeEnvironments(base, override map[string]string) map[string]string {
	result := make(map[string]string, len(base)+len(override))
	for key, value := range base {
		result[key] = value
	}
	for key, value := range override {
		result[key] = value
	}
	return result
}
