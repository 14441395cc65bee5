package request

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultHost = "localhost"
	defaultPath = "/"
)

//authority is the host and optional port of a reconstructed URI, port 0 means none
type authority struct {
	host string
	port int
}

//target is the raw path and query of a reconstructed URI
type target struct {
	path  string
	query string
}

//authorityRule and targetRule are single steps of a fallback chain. ok is false when
//the signal the step looks for is absent from the environment.
type authorityRule func(env Params) (authority, bool)
type targetRule func(env Params) (target, bool)

//evaluated top to bottom, first match wins
var authorityRules = []authorityRule{
	authorityFromHTTPHost,
	authorityFromServerName,
}

var targetRules = []targetRule{
	targetFromRequestURI,
	targetFromPHPSelf,
}

//reconstructURI builds the absolute request URI out of the environment mapping.
//It never fails: scheme, host and path fall back to http, localhost and /.
func reconstructURI(env Params) *url.URL {
	scheme := schemeOf(env)

	auth := authority{host: defaultHost}
	for _, rule := range authorityRules {
		if a, ok := rule(env); ok {
			auth = a
			break
		}
	}

	tgt := target{path: defaultPath}
	for _, rule := range targetRules {
		if t, ok := rule(env); ok {
			tgt = t
			break
		}
	}

	u := &url.URL{
		Scheme:   scheme,
		Host:     auth.hostPort(scheme),
		RawQuery: tgt.query,
	}

	setPath(u, tgt.path)

	return u
}

//schemeOf is https unless HTTPS is absent or "off"
func schemeOf(env Params) string {
	v, ok := env.String("HTTPS")
	if !ok || v == "off" {
		return "http"
	}

	return "https"
}

func authorityFromHTTPHost(env Params) (authority, bool) {
	v, ok := env.lookup("HTTP_HOST")
	if !ok {
		return authority{}, false
	}

	host, port := splitHostPort(v)
	if host == "" {
		return authority{}, false
	}

	return authority{host: host, port: parsePort(port)}, true
}

//SERVER_PORT only counts when paired with SERVER_NAME
func authorityFromServerName(env Params) (authority, bool) {
	host, ok := env.lookup("SERVER_NAME")
	if !ok {
		return authority{}, false
	}

	a := authority{host: host}
	if port, ok := env.lookup("SERVER_PORT"); ok {
		a.port = parsePort(port)
	}

	return a, true
}

func targetFromRequestURI(env Params) (target, bool) {
	v, ok := env.lookup("REQUEST_URI")
	if !ok {
		return target{}, false
	}

	parts := strings.SplitN(v, "?", 2)

	t := target{path: parts[0]}
	if len(parts) == 2 {
		t.query = parts[1]
	}

	return t, true
}

func targetFromPHPSelf(env Params) (target, bool) {
	v, ok := env.lookup("PHP_SELF")
	if !ok {
		return target{}, false
	}

	t := target{path: v}
	if q, ok := env.String("QUERY_STRING"); ok {
		t.query = q
	}

	return t, true
}

//splitHostPort splits once on ':'. Bracketed IPv6 literals split after the ']'.
func splitHostPort(v string) (host, port string) {
	if strings.HasPrefix(v, "[") {
		if i := strings.IndexByte(v, ']'); i > 0 {
			host, rest := v[:i+1], v[i+1:]
			return host, strings.TrimPrefix(rest, ":")
		}
	}

	parts := strings.SplitN(v, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}

	return parts[0], ""
}

//parsePort returns 0 for anything that is not a valid TCP port
func parsePort(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 || n > 65535 {
		return 0
	}

	return n
}

func (a authority) hostPort(scheme string) string {
	if a.port == 0 || a.port == standardPort(scheme) {
		return a.host
	}

	return a.host + ":" + strconv.Itoa(a.port)
}

func standardPort(scheme string) int {
	switch scheme {
	case "http":
		return 80
	case "https":
		return 443
	}

	return 0
}

//setPath keeps the raw encoding of the path. A path that is not valid
//percent-encoding is rendered verbatim through Opaque, and Path holds it with its
//valid escapes decoded. Host must be set before.
func setPath(u *url.URL, raw string) {
	if raw == "" {
		raw = defaultPath
	}

	p, err := url.PathUnescape(raw)
	if err != nil {
		u.Path = unescapeLenient(raw)
		u.Opaque = "//" + u.Host + raw
		return
	}

	u.Path = p
	if p != raw {
		u.RawPath = raw
	}
}

//unescapeLenient decodes valid %XX sequences and leaves any other % as is
func unescapeLenient(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	for i := 0; i < len(raw); i++ {
		if raw[i] == '%' && i+2 < len(raw) {
			if c, err := strconv.ParseUint(raw[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(c))
				i += 2
				continue
			}
		}

		b.WriteByte(raw[i])
	}

	return b.String()
}
