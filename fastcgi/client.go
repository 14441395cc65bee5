package fastcgi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

//Client sends requests to a FastCGI application over one connection
type Client interface {
	Do(req *Request) (*ResponsePipe, error)
	Close() error
}

//client is the default implementation of Client
type client struct {
	conn *conn
	ids  idPool
}

//Dial connects to a FastCGI application. limit bounds the number of request ids
//in use, 0 means the protocol maximum.
func Dial(network, address string, limit uint32) (Client, error) {
	c, err := net.Dial(network, address)
	if err != nil {
		return nil, errors.Wrapf(err, "fastcgi: dial %s %s", network, address)
	}

	return &client{
		conn: newConn(c),
		ids:  newIDs(limit),
	}, nil
}

//writeRequest writes params and stdin to the FastCGI application
func (c *client) writeRequest(reqID uint16, req *Request) (err error) {
	defer func() {
		if err != nil {
			_ = c.conn.writeAbortRequest(reqID)
		}
	}()

	var flags uint8
	if req.KeepConn {
		flags = flagKeepConn
	}

	//write request header with specified role
	if err = c.conn.writeBeginRequest(reqID, req.Role, flags); err != nil {
		return err
	}

	if err = c.conn.writePairs(typeParams, reqID, req.Params); err != nil {
		return err
	}

	//write the stdin stream
	stdinWriter := newWriter(c.conn, typeStdin, reqID)
	if req.Stdin != nil {
		defer func() {
			_ = req.Stdin.Close()
		}()

		p := make([]byte, 1024)
		var count int

		for {
			count, err = req.Stdin.Read(p)

			if err == io.EOF {
				err = nil
			} else if err != nil {
				stdinWriter.Close()
				return
			}

			if count == 0 {
				break
			}

			_, err = stdinWriter.Write(p[:count])

			if err != nil {
				stdinWriter.Close()
				return
			}
		}
	}

	if err = stdinWriter.Close(); err != nil {
		return err
	}

	return nil
}

//readResponse copies stdout and stderr records of the request into resp until
//its end record arrives or ctx is done
func (c *client) readResponse(ctx context.Context, resp *ResponsePipe, req *Request) (err error) {
	var rec record
	done := make(chan int)

	go func() {
		defer close(done)

	readLoop:
		for {
			if err := rec.read(c.conn.rwc); err != nil {
				break
			}

			switch rec.h.Type {
			case typeStdout:
				if b := rec.content(); len(b) > 0 {
					_, _ = resp.stdOutWriter.Write(b)
				}
			case typeStderr:
				if b := rec.content(); len(b) > 0 {
					_, _ = resp.stdErrWriter.Write(b)
				}
			case typeEndRequest:
				break readLoop
			default:
				_, _ = fmt.Fprintf(resp.stdErrWriter, "fastcgi: unexpected record type %d for request %d", rec.h.Type, rec.h.ID)
			}
		}
	}()

	select {
	case <-ctx.Done():
		err = errors.Wrap(ctx.Err(), "fastcgi: timeout or canceled")
	case <-done:
	}

	return
}

//Do implements Client.Do
func (c *client) Do(req *Request) (resp *ResponsePipe, err error) {
	if c.conn == nil {
		return nil, ErrClosed
	}

	reqID := c.ids.Alloc()
	resp = NewResponsePipe()
	rwError, allDone := make(chan error), make(chan int)

	//if there is a raw request, use the context deadline
	var ctx context.Context
	if req.Raw != nil {
		ctx = req.Raw.Context()
	} else {
		ctx = context.TODO()
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		wg.Wait()
		close(allDone)
	}()

	go func() {
		if err := c.writeRequest(reqID, req); err != nil {
			rwError <- err
		}

		wg.Done()
	}()

	go func() {
		if err := c.readResponse(ctx, resp, req); err != nil {
			rwError <- err
		}

		wg.Done()
	}()

	go func() {
		for {
			select {
			case err := <-rwError:
				_, _ = resp.stdErrWriter.Write([]byte(err.Error()))
			case <-allDone:
				c.ids.Release(reqID)
				resp.Close()
				return
			}
		}
	}()

	return
}

func (c *client) Close() (err error) {
	if c.conn == nil {
		return
	}

	err = c.conn.Close()
	c.conn = nil

	return
}

//NewResponsePipe returns an initialized new ResponsePipe struct
func NewResponsePipe() (p *ResponsePipe) {
	p = new(ResponsePipe)
	p.stdOutReader, p.stdOutWriter = io.Pipe()
	p.stdErrReader, p.stdErrWriter = io.Pipe()

	return
}

// ResponsePipe contains readers and writers that handles
// all FastCGI output streams
type ResponsePipe struct {
	stdOutReader io.Reader
	stdOutWriter io.WriteCloser
	stdErrReader io.Reader
	stdErrWriter io.WriteCloser
}

// Close close all writers
func (pipes *ResponsePipe) Close() {
	pipes.stdOutWriter.Close()
	pipes.stdErrWriter.Close()
}

// WriteTo writes the given output into http.ResponseWriter
func (pipes *ResponsePipe) WriteTo(rw http.ResponseWriter, ew io.Writer) (err error) {
	chErr := make(chan error, 2)
	defer close(chErr)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		chErr <- pipes.writeResponse(rw)
		wg.Done()
	}()

	go func() {
		chErr <- pipes.writeError(ew)
		wg.Done()
	}()

	wg.Wait()
	for i := 0; i < 2; i++ {
		if err = <-chErr; err != nil {
			return
		}
	}

	return
}

func (pipes *ResponsePipe) writeError(w io.Writer) (err error) {
	_, err = io.Copy(w, pipes.stdErrReader)
	if err != nil {
		err = errors.Wrap(err, "fastcgi: copy error")
	}
	return
}

// writeResponse parses the CGI response headers and copies the body into w
func (pipes *ResponsePipe) writeResponse(w http.ResponseWriter) (err error) {
	linebody := bufio.NewReaderSize(pipes.stdOutReader, 1024)
	headers := make(http.Header)
	statusCode := 0
	headerLines := 0
	sawBlankLine := false

	for {
		var line []byte
		var isPrefix bool
		line, isPrefix, err = linebody.ReadLine()
		if isPrefix {
			w.WriteHeader(http.StatusInternalServerError)
			err = errors.New("fastcgi: long header line from subprocess")
			return
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			err = errors.Wrap(err, "fastcgi: error reading headers")
			return
		}
		if len(line) == 0 {
			sawBlankLine = true
			break
		}
		headerLines++
		parts := strings.SplitN(string(line), ":", 2)
		if len(parts) < 2 {
			err = errors.Errorf("fastcgi: bogus header line: %s", string(line))
			return
		}
		header, val := parts[0], parts[1]
		header = strings.TrimSpace(header)
		val = strings.TrimSpace(val)
		switch {
		case header == "Status":
			if len(val) < 3 {
				err = errors.Errorf("fastcgi: bogus status (short): %q", val)
				return
			}
			var code int
			code, err = strconv.Atoi(val[0:3])
			if err != nil {
				err = errors.Errorf("fastcgi: bogus status: %q\nline was %q",
					val, line)
				return
			}
			statusCode = code
		default:
			headers.Add(header, val)
		}
	}
	if headerLines == 0 || !sawBlankLine {
		w.WriteHeader(http.StatusInternalServerError)
		err = errors.New("fastcgi: no headers")
		return
	}

	if loc := headers.Get("Location"); loc != "" && statusCode == 0 {
		statusCode = http.StatusFound
	}

	if statusCode == 0 && headers.Get("Content-Type") == "" {
		w.WriteHeader(http.StatusInternalServerError)
		err = errors.New("fastcgi: missing required Content-Type in headers")
		return
	}

	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	for k, vv := range headers {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}

	w.WriteHeader(statusCode)

	_, err = io.Copy(w, linebody)
	if err != nil {
		err = errors.Wrap(err, "fastcgi: copy error")
	}
	return
}
