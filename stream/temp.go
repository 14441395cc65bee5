package stream

import (
	"io"
	"sync"
)

//temp is an in-memory stream, readable, writable and seekable
type temp struct {
	mu     sync.Mutex
	buf    []byte
	off    int64
	closed bool
}

//NewTemp returns an empty in-memory stream
func NewTemp() Stream {
	return &temp{}
}

//NewTempFrom returns an in-memory stream holding a copy of b, positioned at its start
func NewTempFrom(b []byte) Stream {
	t := &temp{buf: make([]byte, len(b))}
	copy(t.buf, b)

	return t
}

func (t *temp) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	if t.off >= int64(len(t.buf)) {
		return 0, io.EOF
	}

	n = copy(p, t.buf[t.off:])
	t.off += int64(n)

	return
}

func (t *temp) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	end := t.off + int64(len(p))
	if end > int64(len(t.buf)) {
		grown := make([]byte, end)
		copy(grown, t.buf)
		t.buf = grown
	}

	n = copy(t.buf[t.off:end], p)
	t.off = end

	return
}

func (t *temp) Seek(offset int64, whence int) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	abs, err := seekTarget(offset, whence, t.off, int64(len(t.buf)))
	if err != nil {
		return 0, err
	}

	t.off = abs

	return abs, nil
}

func (t *temp) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.buf = nil

	return nil
}

func (t *temp) IsReadable() bool { return true }
func (t *temp) IsWritable() bool { return true }
func (t *temp) IsSeekable() bool { return true }

func (t *temp) Size() (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, false
	}

	return int64(len(t.buf)), true
}

func (t *temp) Metadata(key string) interface{} {
	switch key {
	case MetaURI:
		return TempURI
	case MetaMode:
		return "w+b"
	case MetaSeekable:
		return true
	}

	return nil
}
