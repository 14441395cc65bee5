package service

import (
	"io/ioutil"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = ioutil.Discard

	return log
}

type listenerConfig struct {
	Address string `json:"address"`
}

//configured takes its section and the logger
type configured struct {
	cfg    listenerConfig
	log    logrus.FieldLogger
	served bool
	fail   error
}

func (s *configured) Init(cfg Config, log logrus.FieldLogger) (bool, error) {
	s.log = log
	if err := cfg.Unmarshal(&s.cfg); err != nil {
		return false, err
	}

	return s.cfg.Address != "", nil
}

func (s *configured) Serve() error {
	s.served = true
	return s.fail
}

func (s *configured) Stop() {}

//dependent needs the configured service
type dependent struct {
	dep *configured
}

func (d *dependent) Init(dep *configured) (bool, error) {
	d.dep = dep
	return dep != nil, nil
}

func TestContainer_InitAndServe(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"listener": {"address": "127.0.0.1:9000"}, "other": 5}`))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	c := NewContainer(silentLogger())

	l := &configured{}
	d := &dependent{}
	c.Register("listener", l)
	c.Register("dependent", d)

	if err := c.Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if l.cfg.Address != "127.0.0.1:9000" {
		t.Fatalf("expected address from config, got %q", l.cfg.Address)
	}
	if d.dep != l {
		t.Fatal("expected dependency to be injected")
	}

	if _, status := c.Get("listener"); status != StatusOK {
		t.Fatalf("expected StatusOK, got %d", status)
	}

	if err := c.Serve(); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	if !l.served {
		t.Fatal("expected listener to be served")
	}

	if _, status := c.Get("listener"); status != StatusStopped {
		t.Fatalf("expected StatusStopped, got %d", status)
	}
}

func TestContainer_MissingSectionDisables(t *testing.T) {
	cfg, _ := ParseConfig([]byte(`{}`))

	c := NewContainer(silentLogger())
	c.Register("listener", &configured{})

	if err := c.Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if _, status := c.Get("listener"); status != StatusInactive {
		t.Fatalf("expected StatusInactive, got %d", status)
	}

	if _, status := c.Get("nope"); status != StatusUndefined {
		t.Fatalf("expected StatusUndefined, got %d", status)
	}
}

func TestContainer_ServeFailure(t *testing.T) {
	cfg, _ := ParseConfig([]byte(`{"listener": {"address": "x"}}`))
	boom := errors.New("boom")

	c := NewContainer(silentLogger())
	c.Register("listener", &configured{fail: boom})

	if err := c.Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if err := c.Serve(); errors.Cause(err) != boom {
		t.Fatalf("expected boom, got %v", err)
	}

	if !c.Has("listener") || len(c.List()) != 1 {
		t.Fatal("expected listener registered")
	}
}

func TestParseConfig(t *testing.T) {
	if _, err := ParseConfig([]byte(`[1, 2]`)); err == nil {
		t.Fatal("expected error for non-object config")
	}

	cfg, err := ParseConfig([]byte(`{"a": {"b": {"c": 1}}, "s": "x"}`))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	if cfg.Get("s") != nil || cfg.Get("missing") != nil {
		t.Fatal("expected nil for scalar and missing sections")
	}

	var out struct{ C int }
	if err := cfg.Get("a").Get("b").Unmarshal(&out); err != nil || out.C != 1 {
		t.Fatalf("expected c=1, got %d (%v)", out.C, err)
	}
}
