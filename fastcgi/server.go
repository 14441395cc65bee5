package fastcgi

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
)

//Conn is the application side of a FastCGI connection. Requests are served one at a
//time, multiplexing is refused.
type Conn struct {
	c   *conn
	rec record
}

//NewConn wraps a connection accepted from the web server
func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{c: newConn(rwc)}
}

func (c *Conn) Close() error {
	return c.c.Close()
}

//ReadRequest reads the next request: its begin record, the params stream and the
//whole stdin stream. Management records arriving in between are answered.
func (c *Conn) ReadRequest() (*Request, error) {
	var (
		req    *Request
		params bytes.Buffer
		stdin  bytes.Buffer
	)

	for {
		if err := c.rec.read(c.c.rwc); err != nil {
			return nil, err
		}

		h := c.rec.h

		if h.ID == 0 {
			if err := c.management(); err != nil {
				return nil, err
			}
			continue
		}

		if req == nil {
			if h.Type != typeBeginRequest {
				//leftovers of an aborted request
				continue
			}

			b := c.rec.content()
			if len(b) < 8 {
				return nil, errors.Wrap(ErrUnexpectedRecord, "short begin request body")
			}

			req = &Request{
				ID:       h.ID,
				Role:     binary.BigEndian.Uint16(b),
				Params:   make(map[string]string),
				KeepConn: b[2]&flagKeepConn != 0,
			}

			if req.Role != RoleResponder {
				_ = c.c.writeEndRequest(h.ID, 0, statusUnknownRole)
				req = nil
			}

			continue
		}

		if h.ID != req.ID {
			if h.Type == typeBeginRequest {
				_ = c.c.writeEndRequest(h.ID, 0, statusCantMultiplex)
			}
			continue
		}

		switch h.Type {
		case typeParams:
			if h.ContentLength == 0 {
				req.Params = readPairs(params.Bytes())
				continue
			}
			params.Write(c.rec.content())

		case typeStdin:
			if h.ContentLength == 0 {
				req.Stdin = ioutil.NopCloser(bytes.NewReader(stdin.Bytes()))
				return req, nil
			}
			stdin.Write(c.rec.content())

		case typeData:
			//only meaningful for the filter role

		case typeAbortRequest:
			_ = c.c.writeEndRequest(req.ID, 0, statusRequestComplete)
			return nil, ErrAborted

		default:
			return nil, errors.Wrapf(ErrUnexpectedRecord, "%s in request %d", h.Type, h.ID)
		}
	}
}

//management answers records sent with request id 0
func (c *Conn) management() error {
	if c.rec.h.Type != typeGetValues {
		return c.c.writeUnknownType(c.rec.h.Type)
	}

	values := map[string]string{}
	for name := range readPairs(c.rec.content()) {
		switch name {
		case "FCGI_MAX_CONNS", "FCGI_MAX_REQS":
			values[name] = "1"
		case "FCGI_MPXS_CONNS":
			values[name] = "0"
		}
	}

	//single record, the result set is tiny
	var b bytes.Buffer
	size := make([]byte, 8)
	for k, v := range values {
		n := encodeSize(size, uint32(len(k)))
		n += encodeSize(size[n:], uint32(len(v)))
		b.Write(size[:n])
		b.WriteString(k)
		b.WriteString(v)
	}

	return c.c.writeRecord(typeGetValuesResult, 0, b.Bytes())
}

//ResponseWriter streams the output of one request back to the web server
type ResponseWriter struct {
	c      *conn
	id     uint16
	stdout *bufWriter
	stderr *bufWriter
	closed bool
}

//Respond returns the writer for req's stdout and stderr streams
func (c *Conn) Respond(req *Request) *ResponseWriter {
	return &ResponseWriter{
		c:      c.c,
		id:     req.ID,
		stdout: newWriter(c.c, typeStdout, req.ID),
		stderr: newWriter(c.c, typeStderr, req.ID),
	}
}

//Write writes to stdout, the CGI response: header lines, a blank line, the body
func (w *ResponseWriter) Write(p []byte) (int, error) {
	return w.stdout.Write(p)
}

func (w *ResponseWriter) Stderr() io.Writer {
	return w.stderr
}

//Close flushes and terminates both streams and ends the request with appStatus
func (w *ResponseWriter) Close(appStatus int) error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.stdout.Close(); err != nil {
		return err
	}

	if err := w.stderr.Close(); err != nil {
		return err
	}

	return w.c.writeEndRequest(w.id, appStatus, statusRequestComplete)
}
