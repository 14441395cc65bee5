package request

import (
	"encoding/json"
	"strconv"
	"strings"
)

//Params is a loosely typed parameter mapping. It holds the environment mapping
//(server params) as well as query and cookie params. Values are strings, integers,
//or nested Params / []interface{} for array-style inputs.
type Params map[string]interface{}

//String returns the value stored under key in its string form. ok is false when the
//key is missing or holds a non-scalar value.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}

	return scalarString(v)
}

//lookup is String with empty values treated as absent
func (p Params) lookup(key string) (string, bool) {
	v, ok := p.String(key)
	if !ok || v == "" {
		return "", false
	}

	return v, true
}

//Copy returns a deep copy of p. A nil mapping copies to an empty one.
func (p Params) Copy() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = copyValue(v)
	}

	return out
}

//copyValue deep copies the container types a parameter mapping may hold
func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Params:
		return t.Copy()

	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = copyValue(e)
		}
		return out

	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out

	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out

	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out

	default:
		return v
	}
}

func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case int:
		return strconv.Itoa(t), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case bool:
		if t {
			return "1", true
		}
		return "", true
	}

	return "", false
}

func scalarInt(v interface{}) (int64, bool) {
	s, ok := scalarString(v)
	if !ok {
		return 0, false
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, false
		}

		n = int64(f)
	}

	return n, true
}
