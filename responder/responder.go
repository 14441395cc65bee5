// Package responder serves FastCGI requests by reconstructing them as
// request.ServerRequest snapshots and handing them to a Handler.
package responder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fcgi-request/environ"
	"fcgi-request/fastcgi"
	"fcgi-request/request"
	"fcgi-request/service"
)

//ID under which the service is registered and configured
const ID = "responder"

//Config is the "responder" config section
type Config struct {
	Network string `json:"network"`
	Address string `json:"address"`
	Pretty  bool   `json:"pretty"`
}

//Handler writes the CGI response (header lines, blank line, body) for r
type Handler func(w io.Writer, r *request.ServerRequest) error

type Option func(s *Service)

//WithHandler replaces the default handler, which answers with the JSON snapshot
func WithHandler(h Handler) Option {
	return func(s *Service) {
		s.handler = h
	}
}

//Service is the FastCGI responder
type Service struct {
	cfg     Config
	log     logrus.FieldLogger
	factory *request.Factory
	handler Handler

	mu      sync.Mutex
	ln      net.Listener
	conns   map[*fastcgi.Conn]struct{}
	stopped bool
	wg      sync.WaitGroup
}

func New(opts ...Option) *Service {
	s := &Service{conns: make(map[*fastcgi.Conn]struct{})}
	for _, fn := range opts {
		fn(s)
	}

	return s
}

//Init is called by the service container with the "responder" section
func (s *Service) Init(cfg service.Config, log logrus.FieldLogger) (bool, error) {
	if err := cfg.Unmarshal(&s.cfg); err != nil {
		return false, err
	}

	if s.cfg.Address == "" {
		return false, nil
	}

	if s.cfg.Network == "" {
		s.cfg.Network = "tcp"
	}

	s.log = log
	s.factory = request.NewFactory(request.WithLogger(log))

	if s.handler == nil {
		s.handler = Dump(s.cfg.Pretty)
	}

	return true, nil
}

//Listen opens the listener ahead of Serve, Serve does it otherwise
func (s *Service) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return nil
	}

	ln, err := net.Listen(s.cfg.Network, s.cfg.Address)
	if err != nil {
		return errors.Wrapf(err, "responder: listen %s %s", s.cfg.Network, s.cfg.Address)
	}

	s.ln = ln

	return nil
}

//Addr returns the listening address, nil before Listen
func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}

	return s.ln.Addr()
}

func (s *Service) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.log.WithField("address", s.ln.Addr().String()).Info("responder listening")

	for {
		rwc, err := s.ln.Accept()
		if err != nil {
			if s.isStopped() {
				return nil
			}

			return errors.Wrap(err, "responder: accept")
		}

		c := fastcgi.NewConn(rwc)
		if !s.track(c) {
			_ = c.Close()
			return nil
		}

		go s.serveConn(c)
	}
}

//Stop closes the listener and every open connection, then waits for handlers
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.ln != nil {
		_ = s.ln.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Service) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stopped
}

//track registers c for Stop and counts its handler, false once stopped. Both
//happen under the lock that guards stopped.
func (s *Service) track(c *fastcgi.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	s.conns[c] = struct{}{}
	s.wg.Add(1)

	return true
}

func (s *Service) untrack(c *fastcgi.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Service) serveConn(c *fastcgi.Conn) {
	defer s.wg.Done()
	defer s.untrack(c)
	defer c.Close()

	for {
		req, err := c.ReadRequest()
		if err != nil {
			if err != io.EOF && !s.isStopped() {
				s.log.WithError(err).Debug("fastcgi connection dropped")
			}
			return
		}

		s.handle(c, req)

		if !req.KeepConn {
			return
		}
	}
}

func (s *Service) handle(c *fastcgi.Conn, req *fastcgi.Request) {
	w := c.Respond(req)
	log := s.log.WithField("request", req.ID)

	r, err := environ.FromParams(req.Params).Build(s.factory)
	if err != nil {
		log.WithError(err).Warn("request reconstruction failed")

		fmt.Fprint(w, "Status: 500 Internal Server Error\r\nContent-Type: text/plain\r\n\r\n")
		fmt.Fprintln(w, "request reconstruction failed")
		fmt.Fprintln(w.Stderr(), err)

		if cerr := w.Close(1); cerr != nil {
			log.WithError(cerr).Debug("response not delivered")
		}
		return
	}
	defer r.Close()

	if req.Stdin != nil {
		if _, err := io.Copy(r.Body(), req.Stdin); err != nil {
			log.WithError(err).Warn("request body not buffered")
		}
		_, _ = r.Body().Seek(0, io.SeekStart)
	}

	status := 0
	if err := s.handler(w, r); err != nil {
		log.WithError(err).Warn("handler failed")
		fmt.Fprintln(w.Stderr(), err)
		status = 1
	}

	if err := w.Close(status); err != nil {
		log.WithError(err).Debug("response not delivered")
	}
}

//Dump returns the handler answering with the JSON snapshot of the request
func Dump(pretty bool) Handler {
	return func(w io.Writer, r *request.ServerRequest) error {
		if _, err := io.WriteString(w, "Content-Type: application/json\r\n\r\n"); err != nil {
			return err
		}

		return WriteJSON(w, r, pretty)
	}
}

//WriteJSON writes the JSON snapshot of r followed by a newline
func WriteJSON(w io.Writer, r *request.ServerRequest, pretty bool) error {
	b, err := r.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "responder: encode snapshot")
	}

	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, b, "", "  "); err != nil {
			return errors.Wrap(err, "responder: indent snapshot")
		}
		b = buf.Bytes()
	}

	_, err = w.Write(append(b, '\n'))

	return err
}
