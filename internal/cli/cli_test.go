package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/curly/internal/http"
)

type seenRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        string
	Trace       []string
	Form        map[string][]string
}

type recordingServer struct {
	*httptest.Server
	mu   sync.Mutex
	seen []seenRequest
}

func newRecordingServer(t *testing.T, body string) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		s := seenRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Trace:       r.Header.Values("X-Trace"),
		}
		if strings.HasPrefix(s.ContentType, "multipart/form-data") {
			if err := r.ParseMultipartForm(1 << 20); err == nil {
				s.Form = r.MultipartForm.Value
			}
		} else {
			data, _ := io.ReadAll(r.Body)
			s.Body = string(data)
		}
		rs.mu.Lock()
		rs.seen = append(rs.seen, s)
		rs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) requests() []seenRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]seenRequest(nil), rs.seen...)
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

const userJSON = `{"id":7,"name":"John"}`

func TestGetCommand(t *testing.T) {
	srv := newRecordingServer(t, userJSON)

	stdout, _, err := runCLI(t, "get", srv.URL+"/users/7",
		"-H", "X-Trace: a", "-H", "X-Trace: b",
		"--extract", "name=$.name", "-v")
	require.NoError(t, err)

	assert.Contains(t, stdout, "▶ REQUEST: GET "+srv.URL+"/users/7 HTTP/1.1")
	assert.Contains(t, stdout, "◀ RESPONSE: HTTP/1.1 200 OK")
	assert.Contains(t, stdout, "name = John")

	seen := srv.requests()
	require.Len(t, seen, 1)
	assert.Equal(t, "GET", seen[0].Method)
	assert.Equal(t, []string{"a", "b"}, seen[0].Trace)
}

func TestRequestCommand_Data(t *testing.T) {
	srv := newRecordingServer(t, userJSON)

	_, _, err := runCLI(t, "request", srv.URL, "-d", "a=1&b=2")
	require.NoError(t, err)

	seen := srv.requests()[0]
	assert.Equal(t, "POST", seen.Method)
	assert.Equal(t, "a=1&b=2", seen.Body)
	assert.Equal(t, "application/x-www-form-urlencoded", seen.ContentType)
}

func TestRequestCommand_DataFromFile(t *testing.T) {
	srv := newRecordingServer(t, userJSON)
	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"x":1}`), 0o644))

	_, _, err := runCLI(t, "request", srv.URL, "-X", "patch", "-d", "@"+path, "-H", "Content-Type: application/json")
	require.NoError(t, err)

	seen := srv.requests()[0]
	assert.Equal(t, "PATCH", seen.Method)
	assert.Equal(t, `{"x":1}`, seen.Body)
	assert.Equal(t, "application/json", seen.ContentType)
}

func TestRequestCommand_Form(t *testing.T) {
	srv := newRecordingServer(t, userJSON)

	_, _, err := runCLI(t, "request", srv.URL, "-F", "a=1", "-F", "b=2")
	require.NoError(t, err)

	seen := srv.requests()[0]
	assert.Equal(t, "POST", seen.Method)
	assert.Equal(t, map[string][]string{"a": {"1"}, "b": {"2"}}, seen.Form)
}

func TestPutCommand_Upload(t *testing.T) {
	srv := newRecordingServer(t, userJSON)
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("file contents"), 0o644))

	_, _, err := runCLI(t, "request", srv.URL, "-T", path)
	require.NoError(t, err)

	seen := srv.requests()[0]
	assert.Equal(t, "PUT", seen.Method)
	assert.Equal(t, "file contents", seen.Body)
	assert.Equal(t, "text/plain; charset=utf-8", seen.ContentType)
}

func TestRequestCommand_Repeat(t *testing.T) {
	srv := newRecordingServer(t, userJSON)

	stdout, _, err := runCLI(t, "head", srv.URL, "--repeat", "3", "--format", "json")
	require.NoError(t, err)

	assert.Len(t, srv.requests(), 3)
	assert.Contains(t, stdout, `"summary"`)
	assert.Contains(t, stdout, `"count": 3`)
	assert.Contains(t, stdout, `"succeeded": 3`)
}

func TestRequestCommand_SaveOutput(t *testing.T) {
	srv := newRecordingServer(t, userJSON)
	path := filepath.Join(t.TempDir(), "out.json")

	_, stderr, err := runCLI(t, "get", srv.URL, "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, userJSON, string(data))
	assert.Contains(t, stderr, "saved 22 bytes")
}

func TestRequestCommand_Schema(t *testing.T) {
	srv := newRecordingServer(t, userJSON)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"type":"object","required":["id"]}`), 0o644))
	_, stderr, err := runCLI(t, "get", srv.URL, "--schema", good)
	require.NoError(t, err)
	assert.Contains(t, stderr, "response matches schema")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"type":"object","required":["email"]}`), 0o644))
	_, stderr, err = runCLI(t, "get", srv.URL, "--schema", bad)
	assert.ErrorContains(t, err, "schema validation failed")
	assert.Contains(t, stderr, "✗")
}

func TestRequestCommand_Failures(t *testing.T) {
	srv := newRecordingServer(t, userJSON)

	_, _, err := runCLI(t, "request", srv.URL, "-X", "FETCH")
	assert.True(t, errors.Is(err, http.ErrInvalidConfiguration))

	_, _, err = runCLI(t, "get", srv.URL, "--http", "3.0")
	assert.True(t, errors.Is(err, http.ErrInvalidConfiguration))

	_, _, err = runCLI(t, "get", srv.URL, "-H", "no-colon")
	assert.ErrorContains(t, err, "invalid header")

	_, _, err = runCLI(t, "get", srv.URL, "--format", "xml")
	assert.ErrorContains(t, err, "unknown output format")

	_, _, err = runCLI(t, "get", srv.URL, "--extract", "$.name")
	assert.ErrorContains(t, err, "invalid --extract")

	closed := httptest.NewServer(nethttp.NotFoundHandler())
	closed.Close()
	stdout, _, err := runCLI(t, "get", closed.URL)
	assert.ErrorContains(t, err, "transfer failed")
	assert.Contains(t, stdout, "ERROR:")
}

func TestRunCommand(t *testing.T) {
	srv := newRecordingServer(t, userJSON)
	path := filepath.Join(t.TempDir(), "requests.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environments:
  local:
    baseUrl: `+srv.URL+`
    variables:
      id: "7"
requests:
  getUser:
    url: /users/{{id}}
    extract:
      id: $.id
  createUser:
    url: /users
    method: POST
    json:
      name: John
`), 0o644))

	stdout, _, err := runCLI(t, "run", "-c", path, "-e", "local", "-r", "getUser", "--extract", "name=$.name")
	require.NoError(t, err)
	assert.Contains(t, stdout, "id = 7")
	assert.Contains(t, stdout, "name = John")

	_, _, err = runCLI(t, "run", "-c", path, "-e", "local", "-r", "createUser")
	require.NoError(t, err)

	seen := srv.requests()
	require.Len(t, seen, 2)
	assert.Equal(t, "/users/7", seen[0].Path)
	assert.Equal(t, "POST", seen[1].Method)
	assert.JSONEq(t, `{"name":"John"}`, seen[1].Body)

	_, _, err = runCLI(t, "run", "-c", path, "-e", "local")
	assert.ErrorContains(t, err, "available: createUser, getUser")

	_, _, err = runCLI(t, "run", "-c", path, "-e", "staging", "-r", "getUser")
	assert.ErrorContains(t, err, "environment not found")
}

func TestRunCommand_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.yaml")
	require.NoError(t, os.WriteFile(path, []byte("requests:\n  bad:\n    method: FETCH\n"), 0o644))

	_, _, err := runCLI(t, "run", "-c", path, "-r", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requests[bad].method: invalid method: FETCH")
	assert.Contains(t, err.Error(), "requests[bad].url: url is required")
}

func TestRootHelp(t *testing.T) {
	stdout, _, err := runCLI(t)
	require.NoError(t, err)
	assert.Contains(t, stdout, "curly")
	assert.Contains(t, stdout, "request")
}
