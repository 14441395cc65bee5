package main

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fcgi-request/environ"
	"fcgi-request/request"
	"fcgi-request/responder"
	"fcgi-request/service"
)

var (
	cfgFile = flag.String("c", "", "config file, serves FastCGI requests")
	capture = flag.String("capture", "", "JSON capture to print the request snapshot of")
	pretty  = flag.Bool("pretty", false, "indent JSON output")
	verbose = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	log.Out = os.Stderr
	if *verbose {
		log.Level = logrus.DebugLevel
	}

	var err error
	switch {
	case *cfgFile != "":
		err = serve(log, *cfgFile)
	case *capture != "":
		err = snapshotCapture(log, *capture)
	case os.Getenv("GATEWAY_INTERFACE") != "":
		err = snapshotCGI(log)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.WithError(err).Fatal("fcgi-request failed")
	}
}

func serve(log *logrus.Logger, path string) error {
	cfg, err := service.LoadConfig(path)
	if err != nil {
		return err
	}

	c := service.NewContainer(log)
	c.Register(responder.ID, responder.New())

	if err := c.Init(cfg); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("stopping")
		c.Stop()
	}()

	return c.Serve()
}

func snapshotCapture(log *logrus.Logger, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open capture")
	}
	defer f.Close()

	g, err := environ.Decode(f)
	if err != nil {
		return err
	}

	r, err := g.Build(request.NewFactory(request.WithLogger(log)))
	if err != nil {
		return err
	}
	defer r.Close()

	return responder.WriteJSON(os.Stdout, r, *pretty)
}

//snapshotCGI answers a CGI invocation with the snapshot of its own request
func snapshotCGI(log *logrus.Logger) error {
	r, err := environ.FromOS().Build(request.NewFactory(request.WithLogger(log)))
	if err != nil {
		return err
	}
	defer r.Close()

	if _, err := io.Copy(r.Body(), os.Stdin); err != nil {
		return errors.Wrap(err, "read request body")
	}
	_, _ = r.Body().Seek(0, io.SeekStart)

	return responder.Dump(*pretty)(os.Stdout, r)
}
