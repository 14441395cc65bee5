// Package request reconstructs immutable HTTP server requests out of CGI-style
// environment mappings, query, body, cookie and upload inputs.
package request

import (
	"net/http"
	"net/url"
	"strings"

	"fcgi-request/stream"
)

//ServerRequest is an immutable snapshot of an incoming HTTP request. The With*
//methods return modified copies and leave the receiver untouched.
type ServerRequest struct {
	method     string
	uri        *url.URL
	protocol   string
	header     http.Header
	server     Params
	query      Params
	parsedBody interface{}
	cookies    Params
	files      *UploadTree
	body       stream.Stream
	attributes map[string]interface{}
}

func (r *ServerRequest) Method() string          { return r.method }
func (r *ServerRequest) ProtocolVersion() string { return r.protocol }

//URI returns a copy of the request URI
func (r *ServerRequest) URI() *url.URL {
	return copyURL(r.uri)
}

//Headers returns a copy of the whole header set
func (r *ServerRequest) Headers() http.Header {
	return r.header.Clone()
}

//Header returns the values of the named header, looked up case-insensitively.
//The result is empty, never nil, when the header is absent.
func (r *ServerRequest) Header(name string) []string {
	vs := r.header[http.CanonicalHeaderKey(name)]

	out := make([]string, len(vs))
	copy(out, vs)

	return out
}

//HeaderLine joins the values of the named header with a comma
func (r *ServerRequest) HeaderLine(name string) string {
	return strings.Join(r.header[http.CanonicalHeaderKey(name)], ",")
}

func (r *ServerRequest) HasHeader(name string) bool {
	_, ok := r.header[http.CanonicalHeaderKey(name)]
	return ok
}

func (r *ServerRequest) ServerParams() Params { return r.server.Copy() }
func (r *ServerRequest) QueryParams() Params  { return r.query.Copy() }
func (r *ServerRequest) CookieParams() Params { return r.cookies.Copy() }

//ParsedBody returns a copy of the parsed body, nil when there is none
func (r *ServerRequest) ParsedBody() interface{} {
	return copyValue(r.parsedBody)
}

//UploadedFiles returns the normalized upload tree, an empty branch when nothing
//was uploaded
func (r *ServerRequest) UploadedFiles() *UploadTree { return r.files }

func (r *ServerRequest) Body() stream.Stream { return r.body }

//Attribute returns the named attribute, or def when it is not set
func (r *ServerRequest) Attribute(name string, def interface{}) interface{} {
	if v, ok := r.attributes[name]; ok {
		return v
	}

	return def
}

func (r *ServerRequest) Attributes() map[string]interface{} {
	out := make(map[string]interface{}, len(r.attributes))
	for k, v := range r.attributes {
		out[k] = v
	}

	return out
}

//Close releases the body stream and every upload stream, returning the first error
func (r *ServerRequest) Close() error {
	err := r.files.Close()

	if r.body != nil {
		if berr := r.body.Close(); berr != nil && err == nil {
			err = berr
		}
	}

	return err
}

//clone copies the value fields, mutable containers are replaced by the With* methods
func (r *ServerRequest) clone() *ServerRequest {
	c := *r
	return &c
}

func (r *ServerRequest) WithMethod(method string) *ServerRequest {
	c := r.clone()
	c.method = method

	return c
}

//WithURI replaces the URI. The Host header is left alone.
func (r *ServerRequest) WithURI(u *url.URL) *ServerRequest {
	c := r.clone()
	c.uri = copyURL(u)

	return c
}

func (r *ServerRequest) WithProtocolVersion(version string) *ServerRequest {
	c := r.clone()
	c.protocol = version

	return c
}

//WithHeader replaces every value of the named header
func (r *ServerRequest) WithHeader(name string, values ...string) *ServerRequest {
	c := r.clone()
	c.header = r.header.Clone()
	c.header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)

	return c
}

//WithAddedHeader appends values to the named header
func (r *ServerRequest) WithAddedHeader(name string, values ...string) *ServerRequest {
	c := r.clone()
	c.header = r.header.Clone()

	key := http.CanonicalHeaderKey(name)
	c.header[key] = append(c.header[key], values...)

	return c
}

func (r *ServerRequest) WithoutHeader(name string) *ServerRequest {
	c := r.clone()
	c.header = r.header.Clone()
	delete(c.header, http.CanonicalHeaderKey(name))

	return c
}

func (r *ServerRequest) WithQueryParams(query Params) *ServerRequest {
	c := r.clone()
	c.query = query.Copy()

	return c
}

func (r *ServerRequest) WithCookieParams(cookies Params) *ServerRequest {
	c := r.clone()
	c.cookies = cookies.Copy()

	return c
}

func (r *ServerRequest) WithParsedBody(body interface{}) *ServerRequest {
	c := r.clone()
	c.parsedBody = copyValue(body)

	return c
}

func (r *ServerRequest) WithUploadedFiles(files *UploadTree) *ServerRequest {
	c := r.clone()
	if files == nil {
		files = newUploadBranch(false)
	}
	c.files = files

	return c
}

func (r *ServerRequest) WithBody(body stream.Stream) *ServerRequest {
	c := r.clone()
	c.body = body

	return c
}

func (r *ServerRequest) WithAttribute(name string, value interface{}) *ServerRequest {
	c := r.clone()
	c.attributes = r.Attributes()
	c.attributes[name] = value

	return c
}

func (r *ServerRequest) WithoutAttribute(name string) *ServerRequest {
	c := r.clone()
	c.attributes = r.Attributes()
	delete(c.attributes, name)

	return c
}

func copyURL(u *url.URL) *url.URL {
	if u == nil {
		return &url.URL{}
	}

	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}

	return &c
}
