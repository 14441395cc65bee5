package service

import (
	"io/ioutil"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//jsonConfig is a Config over one JSON object
type jsonConfig struct {
	raw jsoniter.RawMessage
}

//ParseConfig returns the Config held by a JSON object
func ParseConfig(data []byte) (Config, error) {
	var probe map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrap(err, "config: not a JSON object")
	}

	return &jsonConfig{raw: append(jsoniter.RawMessage(nil), data...)}, nil
}

//LoadConfig reads and parses the JSON config file at path
func LoadConfig(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}

	return ParseConfig(data)
}

//Get returns nil when the section is missing or is not an object
func (c *jsonConfig) Get(section string) Config {
	sub := json.Get(c.raw, section)
	if sub.LastError() != nil || sub.ValueType() != jsoniter.ObjectValue {
		return nil
	}

	return &jsonConfig{raw: jsoniter.RawMessage(sub.ToString())}
}

func (c *jsonConfig) Unmarshal(out interface{}) error {
	return errors.Wrap(json.Unmarshal(c.raw, out), "config: unmarshal")
}
