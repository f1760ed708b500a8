package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/curly/internal/http"
)

const sampleYAML = `
environments:
  dev:
    baseUrl: https://api-dev.example.com/
    headers:
      Authorization: Bearer {{token}}
    variables:
      token: dev-token
      userId: "1"
  prod:
    baseUrl: https://api.example.com
    variables:
      userId: "2"
requests:
  getUser:
    url: /users/{{userId}}
    method: get
    headers:
      Accept: application/json
    timeout: 1500ms
    followRedirects: 5
    userAgent: curly/{{userId}}
    extract:
      name: $.name
  createUser:
    url: https://api.example.com/users
    method: POST
    httpVersion: "1.0"
    json:
      name: John
      tags: [a, b]
  uploadAvatar:
    url: /users/{{userId}}/avatar
    method: PUT
    fields:
      owner: "{{userId}}"
    upload:
      file: avatar.bin
      field: avatar
    insecure: true
    tlsVersion: "1.2"
    proxy: socks5://127.0.0.1:1080
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	file, err := LoadConfig(writeConfig(t, "requests.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Len(t, file.Environments, 2)
	assert.Equal(t, []string{"createUser", "getUser", "uploadAvatar"}, file.RequestNames())
	assert.Equal(t, "https://api.example.com", file.Environments["prod"].BaseURL)

	get := file.Requests["getUser"]
	assert.Equal(t, "/users/{{userId}}", get.URL)
	require.NotNil(t, get.Redirects)
	assert.Equal(t, 5, *get.Redirects)
	assert.Equal(t, map[string]string{"name": "$.name"}, get.Extract)

	upload := file.Requests["uploadAvatar"].Upload
	require.NotNil(t, upload)
	assert.Equal(t, "avatar", upload.Field)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "requests.json", `{
		"environments": {"dev": {"baseUrl": "http://localhost:8080"}},
		"requests": {"ping": {"url": "/ping", "method": "HEAD", "timeout": "2 seconds"}}
	}`)

	file, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "HEAD", file.Requests["ping"].Method)
	assert.Empty(t, ValidateConfig(file))
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "config file not found")

	_, err = LoadConfig(writeConfig(t, "bad.yaml", "requests: [unclosed"))
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestBuild(t *testing.T) {
	path := writeConfig(t, "requests.yaml", sampleYAML)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "avatar.bin"), []byte("png"), 0o644))
	file, err := LoadConfig(path)
	require.NoError(t, err)

	t.Run("relative url with environment", func(t *testing.T) {
		req, err := file.Build("getUser", "dev")
		require.NoError(t, err)

		assert.Equal(t, "https://api-dev.example.com/users/1", req.URL())
		assert.Equal(t, "GET", req.Method())
		assert.Equal(t, []string{"Accept: application/json", "Authorization: Bearer dev-token"}, req.HeaderLines())
		assert.Equal(t, 1500*time.Millisecond, req.Timeout())
		assert.Equal(t, "curly/1", req.UserAgent())

		follow, max := req.Redirects()
		assert.True(t, follow)
		assert.Equal(t, 5, max)
	})

	t.Run("other environment", func(t *testing.T) {
		req, err := file.Build("getUser", "prod")
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/users/2", req.URL())
		assert.Equal(t, []string{"Accept: application/json"}, req.HeaderLines())
	})

	t.Run("json body", func(t *testing.T) {
		req, err := file.Build("createUser", "")
		require.NoError(t, err)
		assert.Equal(t, "POST", req.Method())
		assert.Equal(t, "1.0", req.HTTPVersion())
		assert.JSONEq(t, `{"name":"John","tags":["a","b"]}`, string(req.Body()))
		assert.Contains(t, req.HeaderLines(), "Content-Type: application/json")
	})

	t.Run("upload resolved next to the file", func(t *testing.T) {
		req, err := file.Build("uploadAvatar", "dev")
		require.NoError(t, err)

		field, payload := req.Upload()
		assert.Equal(t, "avatar", field)
		require.NotNil(t, payload)
		assert.Equal(t, int64(3), payload.Size())
		assert.Equal(t, map[string]string{"owner": "1"}, req.Fields())

		proxy, ok := req.Option(http.OptProxy)
		assert.True(t, ok)
		assert.Equal(t, "socks5://127.0.0.1:1080", proxy)
		peer, _ := req.Option(http.OptSSLVerifyPeer)
		assert.Equal(t, false, peer)
	})

	t.Run("relative url without environment", func(t *testing.T) {
		_, err := file.Build("getUser", "")
		assert.ErrorContains(t, err, "needs an environment baseUrl")
	})

	t.Run("unknown names", func(t *testing.T) {
		_, err := file.Build("nope", "dev")
		assert.ErrorContains(t, err, "request not found")
		_, err = file.Build("getUser", "staging")
		assert.ErrorContains(t, err, "environment not found")
	})
}

func TestBuild_ForwardsOptions(t *testing.T) {
	file := &File{Requests: map[string]Request{
		"h2": {URL: "https://example.com", HTTPVersion: "2.0"},
	}}

	_, err := file.Build("h2", "", http.WithTransport(noHTTP2{}))
	assert.ErrorIs(t, err, http.ErrUnsupportedFeature)
}

type noHTTP2 struct{}

func (noHTTP2) Open() (http.Handle, error) { return nil, os.ErrClosed }
func (noHTTP2) SupportsHTTP2() bool        { return false }

func TestParseDurationString(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"250ms", 250 * time.Millisecond, false},
		{"30 seconds", 30 * time.Second, false},
		{"1 minute", time.Minute, false},
		{"2 hours", 2 * time.Hour, false},
		{"", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDurationString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcessEnvironment(t *testing.T) {
	env := map[string]string{"host": "example.com", "id": "7"}

	assert.Equal(t, "https://example.com/items/7", ProcessEnvironment("https://{{host}}/items/{{id}}", env))
	assert.Equal(t, "{{unknown}}", ProcessEnvironment("{{unknown}}", env))
	assert.Equal(t, map[string]string{"X-Id": "7"}, ProcessEnvironmentInMap(map[string]string{"X-Id": "{{id}}"}, env))
}

func TestMergeEnvironments(t *testing.T) {
	merged := MergeEnvironments(
		map[string]string{"a": "1", "b": "2"},
		map[string]string{"b": "3", "c": "4"},
	)
	assert.Equal(t, map[string]string{"a": "1", "b": "3", "c": "4"}, merged)
	assert.Empty(t, MergeEnvironments(nil, nil))
}
