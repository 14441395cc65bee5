// Package stream provides the byte streams used as request bodies and as
// uploaded file contents.
package stream

import (
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
)

//metadata keys understood by every Stream
const (
	MetaURI      = "uri"
	MetaMode     = "mode"
	MetaSeekable = "seekable"
)

//TempURI is the backing location reported by streams created with NewTemp
const TempURI = "temp://memory"

var (
	ErrClosed           = errors.New("stream: closed")
	ErrNotReadable      = errors.New("stream: not readable")
	ErrNotWritable      = errors.New("stream: not writable")
	ErrNegativePosition = errors.New("stream: negative position")
	ErrInvalidWhence    = errors.New("stream: invalid whence")
)

//Stream is a byte stream with capability flags and metadata describing its
//backing location.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	IsReadable() bool
	IsWritable() bool
	IsSeekable() bool

	//Size returns the stream size in bytes, ok is false when it cannot be determined.
	Size() (size int64, ok bool)

	//Metadata returns the value stored under key, or nil when there is none.
	Metadata(key string) interface{}
}

//Contents rewinds s and reads it to the end.
func Contents(s Stream) ([]byte, error) {
	if !s.IsReadable() {
		return nil, ErrNotReadable
	}

	if s.IsSeekable() {
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "stream: rewind")
		}
	}

	return ioutil.ReadAll(s)
}

func seekTarget(offset int64, whence int, current int64, size int64) (int64, error) {
	var abs int64

	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = current + offset
	case io.SeekEnd:
		abs = size + offset
	default:
		return 0, ErrInvalidWhence
	}

	if abs < 0 {
		return 0, ErrNegativePosition
	}

	return abs, nil
}
