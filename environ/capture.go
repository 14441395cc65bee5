package environ

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"fcgi-request/request"
)

//numbers decode to json.Number so integer fields survive untouched
var captureCodec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

//capture is the JSON form of Globals
type capture struct {
	Server  map[string]interface{} `json:"server"`
	Query   map[string]interface{} `json:"query"`
	Body    interface{}            `json:"body"`
	Cookies map[string]interface{} `json:"cookies"`
	Files   map[string]interface{} `json:"files"`
}

//Decode reads a JSON capture of the five request inputs:
//
//	{"server": {...}, "query": {...}, "body": ..., "cookies": {...}, "files": {...}}
//
//Every member is optional. files follows the web server's upload layout, with
//tmp_name/size/error/name/type either scalars or parallel arrays.
func Decode(r io.Reader) (g Globals, err error) {
	var c capture
	if err = captureCodec.NewDecoder(r).Decode(&c); err != nil {
		return g, errors.Wrap(err, "environ: decode capture")
	}

	g = Globals{
		Server:  request.Params(c.Server),
		Query:   request.Params(c.Query),
		Body:    c.Body,
		Cookies: request.Params(c.Cookies),
	}

	if c.Files != nil {
		g.Files = request.ParseUploadNode(c.Files)
	}

	return g, nil
}

//Encode writes g in the form read by Decode
func Encode(w io.Writer, g Globals) error {
	c := capture{
		Server:  g.Server,
		Query:   g.Query,
		Body:    g.Body,
		Cookies: g.Cookies,
		Files:   uploadMap(g.Files),
	}

	return errors.Wrap(captureCodec.NewEncoder(w).Encode(c), "environ: encode capture")
}

func uploadMap(n *request.UploadNode) map[string]interface{} {
	if n == nil || n.IsScalar() {
		return nil
	}

	out := make(map[string]interface{})
	for _, k := range n.Keys() {
		out[k] = uploadValue(n.Child(k))
	}

	return out
}

func uploadValue(n *request.UploadNode) interface{} {
	switch {
	case n == nil:
		return nil
	case n.IsScalar():
		return n.Value()
	case n.IsList():
		keys := n.Keys()
		list := make([]interface{}, len(keys))
		for i, k := range keys {
			list[i] = uploadValue(n.Child(k))
		}
		return list
	default:
		return uploadMap(n)
	}
}
