package http

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patternBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestUploadCursor_SuccessiveSlices(t *testing.T) {
	payload := patternBytes(2 << 20)
	cursor := newUploadCursor(bytes.NewReader(payload), int64(len(payload)))

	const chunk = 64*1024 + 7
	var joined []byte
	empties := 0
	for i := 0; i < 1000; i++ {
		got, err := cursor.Next(chunk)
		require.NoError(t, err)
		if len(got) == 0 {
			empties++
			break
		}
		assert.LessOrEqual(t, len(got), chunk)
		joined = append(joined, got...)
	}

	assert.Equal(t, 1, empties)
	assert.True(t, bytes.Equal(payload, joined), "concatenated chunks differ from payload")
	assert.Equal(t, int64(len(payload)), cursor.Offset())

	for i := 0; i < 3; i++ {
		got, err := cursor.Next(chunk)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, int64(len(payload)), cursor.Offset())
}

func TestUploadCursor_Read(t *testing.T) {
	payload := patternBytes(3*StreamThreshold + 11)
	cursor := newUploadCursor(bytes.NewReader(payload), int64(len(payload)))

	got, err := io.ReadAll(cursor)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, got))

	n, err := cursor.Read(make([]byte, 16))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPayload_Streamed(t *testing.T) {
	assert.False(t, BytesPayload("a.bin", patternBytes(StreamThreshold)).Streamed())
	assert.True(t, BytesPayload("a.bin", patternBytes(StreamThreshold+1)).Streamed())
}

func TestFilePayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ok":true}`), 0o600))

	p, err := FilePayload(path)
	require.NoError(t, err)
	assert.Equal(t, "report.json", p.Filename)
	assert.Equal(t, "application/json", p.ContentType)
	assert.Equal(t, int64(11), p.Size())

	_, err = FilePayload(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	_, err = FilePayload(dir)
	assert.Error(t, err)
}
