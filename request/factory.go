package request

import (
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fcgi-request/stream"
)

//ErrInvalidURI is the cause of errors returned by CreateServerRequest for URIs
//that do not parse.
var ErrInvalidURI = errors.New("invalid request uri")

//Factory creates server requests. The zero value is not usable, see NewFactory.
type Factory struct {
	log  logrus.FieldLogger
	open func(path string) (stream.Stream, error)
}

type FactoryOption func(f *Factory)

//WithLogger sets the logger receiving normalization diagnostics
func WithLogger(log logrus.FieldLogger) FactoryOption {
	return func(f *Factory) {
		f.log = log
	}
}

//WithStreamOpener replaces the function binding uploaded files to their backing
//location, stream.Open by default.
func WithStreamOpener(open func(path string) (stream.Stream, error)) FactoryOption {
	return func(f *Factory) {
		f.open = open
	}
}

func NewFactory(opts ...FactoryOption) *Factory {
	silent := logrus.New()
	silent.Out = ioutil.Discard

	f := &Factory{
		log:  silent,
		open: stream.Open,
	}

	for _, fn := range opts {
		fn(f)
	}

	return f
}

var defaultFactory = NewFactory()

//CreateServerRequest creates a request from an explicit method and URI. Headers and
//protocol version are not derived from serverParams.
func CreateServerRequest(method, uri string, serverParams Params) (*ServerRequest, error) {
	return defaultFactory.CreateServerRequest(method, uri, serverParams)
}

//FromEnvironment reconstructs a request from the five raw inputs, any of which may
//be nil.
func FromEnvironment(server, query Params, parsedBody interface{}, cookies Params, files *UploadNode) (*ServerRequest, error) {
	return defaultFactory.FromEnvironment(server, query, parsedBody, cookies, files)
}

func (f *Factory) CreateServerRequest(method, uri string, serverParams Params) (*ServerRequest, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURI, "%q: %v", uri, err)
	}

	return f.CreateServerRequestURI(method, u, serverParams), nil
}

func (f *Factory) CreateServerRequestURI(method string, uri *url.URL, serverParams Params) *ServerRequest {
	return &ServerRequest{
		method:     method,
		uri:        copyURL(uri),
		protocol:   defaultProtocolVersion,
		header:     make(http.Header),
		server:     serverParams.Copy(),
		query:      Params{},
		cookies:    Params{},
		files:      newUploadBranch(false),
		body:       stream.NewTemp(),
		attributes: map[string]interface{}{},
	}
}

//FromEnvironment runs the URI, header, protocol and upload normalizations over the
//inputs. The only failure is an upload whose backing location cannot be opened,
//reported with ErrUnreadableUploadSource as cause.
func (f *Factory) FromEnvironment(server, query Params, parsedBody interface{}, cookies Params, files *UploadNode) (*ServerRequest, error) {
	n := &normalizer{log: f.log, open: f.open}

	tree, err := n.normalize(files)
	if err != nil {
		return nil, err
	}

	r := &ServerRequest{
		method:     methodOf(server),
		uri:        reconstructURI(server),
		protocol:   protocolVersion(server),
		header:     extractHeaders(server),
		server:     server.Copy(),
		query:      query.Copy(),
		parsedBody: copyValue(parsedBody),
		cookies:    cookies.Copy(),
		files:      tree,
		body:       stream.NewTemp(),
		attributes: map[string]interface{}{},
	}

	f.log.WithFields(logrus.Fields{
		"method":  r.method,
		"uri":     r.uri.String(),
		"version": r.protocol,
		"headers": len(r.header),
		"files":   len(n.opened),
	}).Debug("server request reconstructed")

	return r, nil
}
