package responder

import (
	"bytes"
	"io"
	"io/ioutil"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"fcgi-request/fastcgi"
	"fcgi-request/request"
	"fcgi-request/service"
)

type snapshot struct {
	Method          string                 `json:"method"`
	URI             string                 `json:"uri"`
	ProtocolVersion string                 `json:"protocol_version"`
	Headers         map[string][]string    `json:"headers"`
	QueryParams     map[string]interface{} `json:"query_params"`
	CookieParams    map[string]interface{} `json:"cookie_params"`
	Body            struct {
		URI  string `json:"uri"`
		Size int64  `json:"size"`
	} `json:"body"`
}

func startResponder(t *testing.T, opts ...Option) (*Service, func()) {
	t.Helper()

	cfg, err := service.ParseConfig([]byte(`{"network": "tcp", "address": "127.0.0.1:0"}`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	log := logrus.New()
	log.Out = ioutil.Discard

	s := New(opts...)
	if ok, err := s.Init(cfg, log); !ok || err != nil {
		t.Fatalf("Init: %v %v", ok, err)
	}

	if err := s.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	return s, func() {
		s.Stop()
		if err := <-done; err != nil {
			t.Errorf("Serve returned %v", err)
		}
	}
}

func roundTrip(t *testing.T, cl fastcgi.Client, req *fastcgi.Request) *httptest.ResponseRecorder {
	t.Helper()

	resp, err := cl.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	rec := httptest.NewRecorder()
	var stderr bytes.Buffer
	if err := resp.WriteTo(rec, &stderr); err != nil {
		t.Fatalf("WriteTo: %v (stderr %q)", err, stderr.String())
	}

	return rec
}

func TestResponder_Snapshot(t *testing.T) {
	s, stop := startResponder(t)
	defer stop()

	cl, err := fastcgi.Dial("tcp", s.Addr().String(), 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer cl.Close()

	hr := httptest.NewRequest("POST", "http://example.com:8080/submit?page=2", strings.NewReader("payload"))
	hr.Header.Set("X-Trace", "abc")
	hr.Header.Set("Cookie", "session=s1")

	rec := roundTrip(t, cl, fastcgi.NewRequest(hr, fastcgi.WithParam("HTTPS", "on")))

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json, got %s", got)
	}

	var snap snapshot
	if err := jsoniter.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v\n%s", err, rec.Body.String())
	}

	if snap.Method != "POST" {
		t.Fatalf("expected POST, got %s", snap.Method)
	}
	if snap.URI != "https://example.com:8080/submit?page=2" {
		t.Fatalf("unexpected uri %s", snap.URI)
	}
	if snap.ProtocolVersion != "1.1" {
		t.Fatalf("expected 1.1, got %s", snap.ProtocolVersion)
	}
	if got := snap.Headers["X-Trace"]; len(got) != 1 || got[0] != "abc" {
		t.Fatalf("expected X-Trace [abc], got %v", got)
	}
	if _, ok := snap.Headers["Content-Length"]; ok {
		t.Fatal("CONTENT_LENGTH must not become a header")
	}
	if snap.QueryParams["page"] != "2" || snap.CookieParams["session"] != "s1" {
		t.Fatalf("unexpected query %v / cookies %v", snap.QueryParams, snap.CookieParams)
	}
	if snap.Body.Size != int64(len("payload")) {
		t.Fatalf("expected body of 7 bytes, got %d", snap.Body.Size)
	}
}

func TestResponder_KeepConnServesSequentialRequests(t *testing.T) {
	seen := make(chan string, 2)
	handler := func(w io.Writer, r *request.ServerRequest) error {
		seen <- r.URI().Path
		_, err := io.WriteString(w, "Content-Type: text/plain\r\n\r\n"+r.Method())
		return err
	}

	s, stop := startResponder(t, WithHandler(handler))
	defer stop()

	cl, err := fastcgi.Dial("tcp", s.Addr().String(), 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer cl.Close()

	for _, path := range []string{"/one", "/two"} {
		rec := roundTrip(t, cl, fastcgi.NewRequest(httptest.NewRequest("DELETE", path, nil)))
		if rec.Body.String() != "DELETE" {
			t.Fatalf("expected DELETE, got %q", rec.Body.String())
		}
	}

	if first, second := <-seen, <-seen; first != "/one" || second != "/two" {
		t.Fatalf("expected /one and /two, got %s and %s", first, second)
	}
}

func TestWriteJSON_Pretty(t *testing.T) {
	r, err := request.FromEnvironment(request.Params{"REQUEST_METHOD": "PUT"}, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("FromEnvironment: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, r, true); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	if !strings.Contains(buf.String(), "\n  \"method\": \"PUT\"") {
		t.Fatalf("expected indented output, got %s", buf.String())
	}
}

func TestResponder_StopWaitsForAcceptedConn(t *testing.T) {
	s := New()

	a, b := net.Pipe()
	defer b.Close()

	c := fastcgi.NewConn(a)
	if !s.track(c) {
		t.Fatal("expected the connection to be tracked before Stop")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the accepted connection was served")
	case <-time.After(50 * time.Millisecond):
	}

	go s.serveConn(c)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return once the connection was served")
	}

	if s.track(fastcgi.NewConn(b)) {
		t.Fatal("expected track to refuse connections after Stop")
	}
}
