package http

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// StreamThreshold is the payload size above which uploads are streamed
// through a read cursor instead of being buffered.
const StreamThreshold = 1 << 20

// Payload is a sized byte source for uploads. File payloads are opened only
// for the duration of a transfer.
type Payload struct {
	Filename    string
	ContentType string
	size        int64
	open        func() (io.ReaderAt, io.Closer, error)
}

// BytesPayload wraps an in-memory payload.
func BytesPayload(filename string, data []byte) *Payload {
	return &Payload{
		Filename:    filename,
		ContentType: contentTypeFor(filename),
		size:        int64(len(data)),
		open: func() (io.ReaderAt, io.Closer, error) {
			return bytes.NewReader(data), nopCloser{}, nil
		},
	}
}

// FilePayload describes the file at path. The file is stat'ed now and opened
// when the transfer runs.
func FilePayload(path string) (*Payload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("upload file: %s is a directory", path)
	}
	name := filepath.Base(path)
	return &Payload{
		Filename:    name,
		ContentType: contentTypeFor(name),
		size:        info.Size(),
		open: func() (io.ReaderAt, io.Closer, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, nil, err
			}
			return f, f, nil
		},
	}, nil
}

// Size returns the payload length in bytes.
func (p *Payload) Size() int64 {
	return p.size
}

// Streamed reports whether the payload is sent through the upload cursor.
func (p *Payload) Streamed() bool {
	return p.size > StreamThreshold
}

func contentTypeFor(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// uploadCursor hands out successive chunks of a payload. The offset only moves
// forward; once it reaches the end every call returns an empty chunk.
type uploadCursor struct {
	src    io.ReaderAt
	size   int64
	offset int64
}

func newUploadCursor(src io.ReaderAt, size int64) *uploadCursor {
	return &uploadCursor{src: src, size: size}
}

// Next returns up to n bytes starting at the current offset and advances the
// offset by the number of bytes returned.
func (c *uploadCursor) Next(n int) ([]byte, error) {
	if n <= 0 || c.offset >= c.size {
		return nil, nil
	}
	if remaining := c.size - c.offset; int64(n) > remaining {
		n = int(remaining)
	}
	buf := make([]byte, n)
	read, err := c.src.ReadAt(buf, c.offset)
	c.offset += int64(read)
	if err != nil && err != io.EOF {
		return buf[:read], err
	}
	return buf[:read], nil
}

// Offset returns the number of bytes handed out so far.
func (c *uploadCursor) Offset() int64 {
	return c.offset
}

// Read adapts the cursor to io.Reader for the transport.
func (c *uploadCursor) Read(p []byte) (int, error) {
	chunk, err := c.Next(len(p))
	if err != nil {
		return copy(p, chunk), err
	}
	if len(chunk) == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	return copy(p, chunk), nil
}
