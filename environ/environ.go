// Package environ snapshots ambient request state (the CGI process environment,
// FastCGI params, or a JSON capture) into the explicit inputs of
// request.Factory.FromEnvironment.
package environ

import (
	"net/http"
	"net/url"
	"os"
	"strings"

	"fcgi-request/request"
)

//Globals holds the five raw inputs of a server request
type Globals struct {
	Server  request.Params
	Query   request.Params
	Body    interface{}
	Cookies request.Params
	Files   *request.UploadNode
}

//Build reconstructs the server request with f
func (g Globals) Build(f *request.Factory) (*request.ServerRequest, error) {
	return f.FromEnvironment(g.Server, g.Query, g.Body, g.Cookies, g.Files)
}

//FromOS snapshots the environment of a CGI process
func FromOS() Globals {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}

		vars[parts[0]] = parts[1]
	}

	return FromParams(vars)
}

//FromParams snapshots the params of a FastCGI request. Query params come from
//QUERY_STRING and cookies from HTTP_COOKIE. No body is parsed.
func FromParams(params map[string]string) Globals {
	server := make(request.Params, len(params))
	for k, v := range params {
		server[k] = v
	}

	return Globals{
		Server:  server,
		Query:   parseQuery(params["QUERY_STRING"]),
		Cookies: parseCookies(params["HTTP_COOKIE"]),
	}
}

//parseQuery keeps repeated keys as lists. Malformed pairs are skipped.
func parseQuery(raw string) request.Params {
	out := request.Params{}
	if raw == "" {
		return out
	}

	values, _ := url.ParseQuery(raw)
	for k, vs := range values {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}

		list := make([]interface{}, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		out[k] = list
	}

	return out
}

func parseCookies(raw string) request.Params {
	out := request.Params{}
	if raw == "" {
		return out
	}

	r := http.Request{Header: http.Header{"Cookie": {raw}}}
	for _, c := range r.Cookies() {
		out[c.Name] = c.Value
	}

	return out
}
