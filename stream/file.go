package stream

import (
	"os"

	"github.com/pkg/errors"
)

//file is a read-only stream bound to a location on the local file system
type file struct {
	f    *os.File
	path string
}

//Open binds a read-only stream to path. Directories are rejected.
func Open(path string) (Stream, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stream: stat %q", path)
	}

	if info.IsDir() {
		return nil, errors.Errorf("stream: %q is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stream: open %q", path)
	}

	return &file{f: f, path: path}, nil
}

func (s *file) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

func (s *file) Write(p []byte) (int, error) {
	return 0, ErrNotWritable
}

func (s *file) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}

func (s *file) Close() error {
	return s.f.Close()
}

func (s *file) IsReadable() bool { return true }
func (s *file) IsWritable() bool { return false }
func (s *file) IsSeekable() bool { return true }

func (s *file) Size() (int64, bool) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, false
	}

	return info.Size(), true
}

func (s *file) Metadata(key string) interface{} {
	switch key {
	case MetaURI:
		return s.path
	case MetaMode:
		return "rb"
	case MetaSeekable:
		return true
	}

	return nil
}
