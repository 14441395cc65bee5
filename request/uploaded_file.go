package request

import (
	"github.com/pkg/errors"

	"fcgi-request/stream"
)

//upload error codes, as reported by the web server in the error field
const (
	UploadErrOK        = 0
	UploadErrIniSize   = 1
	UploadErrFormSize  = 2
	UploadErrPartial   = 3
	UploadErrNoFile    = 4
	UploadErrNoTmpDir  = 6
	UploadErrCantWrite = 7
	UploadErrExtension = 8
)

var uploadErrors = map[int]error{
	UploadErrIniSize:   errors.New("upload: file exceeds the server size limit"),
	UploadErrFormSize:  errors.New("upload: file exceeds the form size limit"),
	UploadErrPartial:   errors.New("upload: file was only partially uploaded"),
	UploadErrNoFile:    errors.New("upload: no file was uploaded"),
	UploadErrNoTmpDir:  errors.New("upload: missing temporary directory"),
	UploadErrCantWrite: errors.New("upload: failed to write file to disk"),
	UploadErrExtension: errors.New("upload: stopped by extension"),
}

//UploadedFile is a single file of the normalized upload tree. Its attributes are
//fixed at construction.
type UploadedFile struct {
	stream          stream.Stream
	size            int64
	errCode         int
	clientFilename  string
	clientMediaType string
}

//NewUploadedFile returns an uploaded file reading its content from s. s may be nil
//for files that failed to upload.
func NewUploadedFile(s stream.Stream, size int64, errCode int, clientFilename, clientMediaType string) *UploadedFile {
	return &UploadedFile{
		stream:          s,
		size:            size,
		errCode:         errCode,
		clientFilename:  clientFilename,
		clientMediaType: clientMediaType,
	}
}

//Stream returns the content stream, nil when the upload failed
func (f *UploadedFile) Stream() stream.Stream { return f.stream }

func (f *UploadedFile) Size() int64             { return f.size }
func (f *UploadedFile) ErrorCode() int          { return f.errCode }
func (f *UploadedFile) ClientFilename() string  { return f.clientFilename }
func (f *UploadedFile) ClientMediaType() string { return f.clientMediaType }

//Err maps the error code to an error, nil for UploadErrOK
func (f *UploadedFile) Err() error {
	if f.errCode == UploadErrOK {
		return nil
	}

	if err, ok := uploadErrors[f.errCode]; ok {
		return err
	}

	return errors.Errorf("upload: unknown error code %d", f.errCode)
}

func (f *UploadedFile) close() error {
	if f.stream == nil {
		return nil
	}

	return f.stream.Close()
}
