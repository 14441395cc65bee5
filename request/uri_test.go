package request

import "testing"

func TestAuthorityRules_Precedence(t *testing.T) {
	env := Params{"HTTP_HOST": "a.example:8080", "SERVER_NAME": "b.example", "SERVER_PORT": "9090"}

	a, ok := authorityFromHTTPHost(env)
	if !ok || a.host != "a.example" || a.port != 8080 {
		t.Fatalf("expected a.example:8080, got %+v (%v)", a, ok)
	}

	a, ok = authorityFromServerName(env)
	if !ok || a.host != "b.example" || a.port != 9090 {
		t.Fatalf("expected b.example:9090, got %+v (%v)", a, ok)
	}

	if got := reconstructURI(env).Host; got != "a.example:8080" {
		t.Fatalf("HTTP_HOST must win, got %s", got)
	}
}

func TestAuthority_StandardPortsOmitted(t *testing.T) {
	if got := reconstructURI(Params{"HTTP_HOST": "example.com:80"}).String(); got != "http://example.com/" {
		t.Fatalf("expected port 80 omitted, got %s", got)
	}

	if got := reconstructURI(Params{"HTTPS": "on", "SERVER_NAME": "example.com", "SERVER_PORT": 443}).String(); got != "https://example.com/" {
		t.Fatalf("expected port 443 omitted, got %s", got)
	}

	if got := reconstructURI(Params{"HTTPS": "on", "HTTP_HOST": "example.com:80"}).String(); got != "https://example.com:80/" {
		t.Fatalf("expected port 80 kept for https, got %s", got)
	}
}

func TestSplitHostPort(t *testing.T) {
	cases := []struct{ in, host, port string }{
		{"example.com", "example.com", ""},
		{"example.com:3000", "example.com", "3000"},
		{"[::1]:8080", "[::1]", "8080"},
		{"[::1]", "[::1]", ""},
		{"a:b:c", "a", "b:c"},
	}

	for _, c := range cases {
		host, port := splitHostPort(c.in)
		if host != c.host || port != c.port {
			t.Fatalf("%s: expected %s/%s, got %s/%s", c.in, c.host, c.port, host, port)
		}
	}
}

func TestParsePort_Invalid(t *testing.T) {
	for _, v := range []string{"", "abc", "0", "70000", "-1"} {
		if got := parsePort(v); got != 0 {
			t.Fatalf("%q: expected 0, got %d", v, got)
		}
	}

	if got := reconstructURI(Params{"HTTP_HOST": "example.com:http"}).String(); got != "http://example.com/" {
		t.Fatalf("expected non-numeric port dropped, got %s", got)
	}
}

func TestTargetRules(t *testing.T) {
	tgt, ok := targetFromRequestURI(Params{"REQUEST_URI": "/a?b=c?d"})
	if !ok || tgt.path != "/a" || tgt.query != "b=c?d" {
		t.Fatalf("expected /a and b=c?d, got %+v", tgt)
	}

	if _, ok := targetFromPHPSelf(Params{"QUERY_STRING": "x"}); ok {
		t.Fatal("QUERY_STRING alone is not a target")
	}

	env := Params{"REQUEST_URI": "/from-uri", "PHP_SELF": "/from-self", "QUERY_STRING": "q"}
	if got := reconstructURI(env).String(); got != "http://localhost/from-uri" {
		t.Fatalf("REQUEST_URI must win and carry its own query, got %s", got)
	}
}

func TestReconstructURI_EscapedPath(t *testing.T) {
	u := reconstructURI(Params{"REQUEST_URI": "/a%20b/c"})

	if u.Path != "/a b/c" {
		t.Fatalf("expected decoded path, got %s", u.Path)
	}
	if got := u.String(); got != "http://localhost/a%20b/c" {
		t.Fatalf("expected raw encoding kept, got %s", got)
	}
}

func TestReconstructURI_InvalidEscapeKeptVerbatim(t *testing.T) {
	u := reconstructURI(Params{"REQUEST_URI": "/a%zz?q", "HTTP_HOST": "example.com:8080"})

	if got := u.String(); got != "http://example.com:8080/a%zz?q" {
		t.Fatalf("expected raw path carried through, got %s", got)
	}
	if u.Path != "/a%zz" || u.RawQuery != "q" {
		t.Fatalf("unexpected path %q / query %q", u.Path, u.RawQuery)
	}

	u = reconstructURI(Params{"REQUEST_URI": "/a%20b%zz%4"})
	if got := u.String(); got != "http://localhost/a%20b%zz%4" {
		t.Fatalf("expected valid escapes left alone, got %s", got)
	}
	if u.Path != "/a b%zz%4" {
		t.Fatalf("expected leniently decoded path, got %q", u.Path)
	}
}

func TestReconstructURI_EmptyRequestURIPath(t *testing.T) {
	if got := reconstructURI(Params{"REQUEST_URI": "?x=1"}).String(); got != "http://localhost/?x=1" {
		t.Fatalf("expected default path, got %s", got)
	}
}

func TestSchemeOf(t *testing.T) {
	cases := map[string]string{"off": "http", "on": "https", "1": "https", "": "https"}
	for in, want := range cases {
		if got := schemeOf(Params{"HTTPS": in}); got != want {
			t.Fatalf("HTTPS=%q: expected %s, got %s", in, want, got)
		}
	}

	if got := schemeOf(Params{}); got != "http" {
		t.Fatalf("expected http, got %s", got)
	}
}
