package environ

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"reflect"
	"strings"
	"testing"

	"fcgi-request/request"
	"fcgi-request/stream"
)

func TestFromParams(t *testing.T) {
	g := FromParams(map[string]string{
		"REQUEST_METHOD": "POST",
		"QUERY_STRING":   "a=1&b=2&b=3",
		"HTTP_COOKIE":    "session=abc; theme=dark",
	})

	if got, _ := g.Server.String("REQUEST_METHOD"); got != "POST" {
		t.Fatalf("expected POST, got %s", got)
	}

	wantQuery := request.Params{"a": "1", "b": []interface{}{"2", "3"}}
	if !reflect.DeepEqual(g.Query, wantQuery) {
		t.Fatalf("expected query %v, got %v", wantQuery, g.Query)
	}

	wantCookies := request.Params{"session": "abc", "theme": "dark"}
	if !reflect.DeepEqual(g.Cookies, wantCookies) {
		t.Fatalf("expected cookies %v, got %v", wantCookies, g.Cookies)
	}

	if g.Body != nil || g.Files != nil {
		t.Fatal("expected no body and no files")
	}
}

func TestFromOS(t *testing.T) {
	if host, ok := os.LookupEnv("HTTP_HOST"); ok {
		os.Unsetenv("HTTP_HOST")
		defer os.Setenv("HTTP_HOST", host)
	}

	os.Setenv("SERVER_NAME", "cgi.example")
	os.Setenv("REQUEST_URI", "/cgi?x=1")
	defer os.Unsetenv("SERVER_NAME")
	defer os.Unsetenv("REQUEST_URI")

	r, err := FromOS().Build(request.NewFactory())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if got := r.URI().String(); !strings.HasPrefix(got, "http") || !strings.HasSuffix(got, "cgi.example/cgi?x=1") {
		t.Fatalf("unexpected uri %s", got)
	}
}

func TestDecode(t *testing.T) {
	f, err := ioutil.TempFile("", "capture")
	if err != nil {
		t.Fatalf("tempfile: %v", err)
	}
	f.Close()
	defer os.Remove(f.Name())

	name, _ := json.Marshal(f.Name())
	in := `{
		"server": {"HTTP_HOST": "example.com", "SERVER_PORT": 8080, "REQUEST_URI": "/upload"},
		"query": {"page": "2"},
		"body": {"title": "report"},
		"cookies": {"id": "7"},
		"files": {"docs": {
			"tmp_name": [` + string(name) + `],
			"size": [0],
			"error": [0],
			"name": ["r.pdf"],
			"type": ["application/pdf"]
		}}
	}`

	g, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got, _ := g.Server.String("SERVER_PORT"); got != "8080" {
		t.Fatalf("expected 8080, got %s", got)
	}

	r, err := g.Build(request.NewFactory())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer r.Close()

	if got := r.URI().String(); got != "http://example.com/upload" {
		t.Fatalf("expected http://example.com/upload, got %s", got)
	}

	doc := r.UploadedFiles().Get("docs").Index(0).File()
	if doc == nil || doc.ClientFilename() != "r.pdf" {
		t.Fatalf("expected docs[0] r.pdf, got %+v", doc)
	}
	if got := doc.Stream().Metadata(stream.MetaURI); got != f.Name() {
		t.Fatalf("expected stream %s, got %v", f.Name(), got)
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode(strings.NewReader("{")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestEncodeDecode(t *testing.T) {
	g := Globals{
		Server: request.Params{"REQUEST_METHOD": "PUT"},
		Files: request.UploadMap().Set("f", request.UploadMap().
			Set("tmp_name", request.UploadList(request.UploadValue(""))).
			Set("size", request.UploadList(request.UploadValue(0))).
			Set("error", request.UploadList(request.UploadValue(request.UploadErrNoFile))).
			Set("name", request.UploadList(request.UploadValue(""))).
			Set("type", request.UploadList(request.UploadValue("")))),
	}

	var buf bytes.Buffer
	if err := Encode(&buf, g); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	back, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	r, err := back.Build(request.NewFactory())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if r.Method() != "PUT" {
		t.Fatalf("expected PUT, got %s", r.Method())
	}

	f := r.UploadedFiles().Get("f").Index(0).File()
	if f == nil || f.ErrorCode() != request.UploadErrNoFile {
		t.Fatalf("expected failed upload under f[0], got %+v", f)
	}
}
