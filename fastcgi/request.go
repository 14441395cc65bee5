package fastcgi

import (
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

//Request hold information of a standard FastCGI request. On the client side it is
//built from an *http.Request, on the responder side it is read off the wire.
type Request struct {
	ID       uint16
	Raw      *http.Request
	Role     uint16
	Params   map[string]string
	Stdin    io.ReadCloser
	Data     io.ReadCloser
	KeepConn bool
}

type OptionRequest func(req *Request)

//WithParam sets a single CGI param, overriding the one derived from the http request
func WithParam(name, value string) OptionRequest {
	return func(req *Request) {
		req.Params[name] = value
	}
}

//WithKeepConn controls whether the application keeps the connection open
func WithKeepConn(keep bool) OptionRequest {
	return func(req *Request) {
		req.KeepConn = keep
	}
}

//NewRequest returns a responder request carrying the CGI params of r. r may be nil
//to build a request from options alone.
func NewRequest(r *http.Request, reqConfig ...OptionRequest) *Request {
	req := &Request{
		Raw:      r,
		Role:     RoleResponder,
		Params:   make(map[string]string),
		KeepConn: true,
	}

	if r != nil {
		req.Params = buildParams(r)

		//pass body (io.ReadCloser) to stdin
		req.Stdin = r.Body
	}

	for _, fn := range reqConfig {
		fn(req)
	}

	return req
}

//buildParams derives the CGI/1.1 meta-variables of r
func buildParams(r *http.Request) map[string]string {
	params := map[string]string{
		"GATEWAY_INTERFACE": "CGI/1.1",
		"SERVER_SOFTWARE":   "fcgi-request",
		"REQUEST_METHOD":    r.Method,
		"REQUEST_URI":       r.URL.RequestURI(),
		"QUERY_STRING":      r.URL.RawQuery,
		"SERVER_PROTOCOL":   r.Proto,
		"SCRIPT_NAME":       r.URL.Path,
		"HTTP_HOST":         r.Host,
	}

	if params["SERVER_PROTOCOL"] == "" {
		params["SERVER_PROTOCOL"] = "HTTP/1.1"
	}

	if host, port, err := net.SplitHostPort(r.Host); err == nil {
		params["SERVER_NAME"] = host
		params["SERVER_PORT"] = port
	} else {
		params["SERVER_NAME"] = r.Host
	}

	if addr, port, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		params["REMOTE_ADDR"] = addr
		params["REMOTE_PORT"] = port
	}

	if r.TLS != nil {
		params["HTTPS"] = "on"
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		params["CONTENT_TYPE"] = ct
	}

	if r.ContentLength > 0 {
		params["CONTENT_LENGTH"] = strconv.FormatInt(r.ContentLength, 10)
	}

	for name, values := range r.Header {
		key := "HTTP_" + strings.ToUpper(strings.Replace(name, "-", "_", -1))
		params[key] = strings.Join(values, ", ")
	}

	return params
}
