package http

import (
	"context"
	"errors"
	"sync"
)

// fakeTransport records every transfer and replays a scripted response.
type fakeTransport struct {
	mu      sync.Mutex
	noHTTP2 bool
	openErr error
	handles []*fakeHandle

	status  string
	headers []string
	chunks  []string
	err     error
	panics  bool
	// readUpload drains streamed bodies so tests can inspect them.
	readUpload bool
}

func (f *fakeTransport) Open() (Handle, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &fakeHandle{owner: f}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeTransport) SupportsHTTP2() bool {
	return !f.noHTTP2
}

func (f *fakeTransport) last() *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}

type fakeHandle struct {
	owner    *fakeTransport
	transfer Transfer
	live     *Transfer
	uploaded []byte
	closes   int
}

func (h *fakeHandle) Perform(_ context.Context, t *Transfer) TransferResult {
	h.transfer = *t
	h.live = t
	f := h.owner
	if f.panics {
		panic("transport exploded")
	}
	if f.readUpload && t.Body != nil && t.Body.Reader != nil {
		buf := make([]byte, 64*1024)
		for {
			n, err := t.Body.Reader.Read(buf)
			h.uploaded = append(h.uploaded, buf[:n]...)
			if err != nil {
				break
			}
		}
	}
	if f.status != "" {
		t.OnHeader(f.status)
	}
	for _, line := range f.headers {
		t.OnHeader(line)
	}
	for _, chunk := range f.chunks {
		t.OnWrite([]byte(chunk))
	}
	info := TransferInfo{"url": t.URL, "total_time": 0.25}
	return TransferResult{Err: f.err, Info: info}
}

func (h *fakeHandle) Close() error {
	h.closes++
	if h.closes > 1 {
		return errors.New("closed twice")
	}
	return nil
}
