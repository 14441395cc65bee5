package request

import (
	jsoniter "github.com/json-iterator/go"

	"fcgi-request/stream"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

type bodyJSON struct {
	URI      interface{} `json:"uri"`
	Size     *int64      `json:"size,omitempty"`
	Readable bool        `json:"readable"`
	Writable bool        `json:"writable"`
	Seekable bool        `json:"seekable"`
}

type requestJSON struct {
	Method          string                 `json:"method"`
	URI             string                 `json:"uri"`
	ProtocolVersion string                 `json:"protocol_version"`
	Headers         map[string][]string    `json:"headers"`
	ServerParams    Params                 `json:"server_params"`
	QueryParams     Params                 `json:"query_params"`
	ParsedBody      interface{}            `json:"parsed_body"`
	CookieParams    Params                 `json:"cookie_params"`
	UploadedFiles   *UploadTree            `json:"uploaded_files"`
	Body            *bodyJSON              `json:"body,omitempty"`
	Attributes      map[string]interface{} `json:"attributes,omitempty"`
}

//MarshalJSON encodes the snapshot, with streams described by their metadata
func (r *ServerRequest) MarshalJSON() ([]byte, error) {
	return codec.Marshal(requestJSON{
		Method:          r.method,
		URI:             r.uri.String(),
		ProtocolVersion: r.protocol,
		Headers:         r.header,
		ServerParams:    r.server,
		QueryParams:     r.query,
		ParsedBody:      r.parsedBody,
		CookieParams:    r.cookies,
		UploadedFiles:   r.files,
		Body:            describeStream(r.body),
		Attributes:      r.attributes,
	})
}

func describeStream(s stream.Stream) *bodyJSON {
	if s == nil {
		return nil
	}

	b := &bodyJSON{
		URI:      s.Metadata(stream.MetaURI),
		Readable: s.IsReadable(),
		Writable: s.IsWritable(),
		Seekable: s.IsSeekable(),
	}

	if size, ok := s.Size(); ok {
		b.Size = &size
	}

	return b
}

//MarshalJSON encodes leaves as objects with the five descriptor fields, lists as
//arrays and keyed branches as objects in key order.
func (t *UploadTree) MarshalJSON() ([]byte, error) {
	s := codec.BorrowStream(nil)
	defer codec.ReturnStream(s)

	t.encode(s)

	if s.Error != nil {
		return nil, s.Error
	}

	out := make([]byte, len(s.Buffer()))
	copy(out, s.Buffer())

	return out, nil
}

func (t *UploadTree) encode(s *jsoniter.Stream) {
	switch {
	case t == nil:
		s.WriteNil()

	case t.file != nil:
		f := t.file
		s.WriteObjectStart()
		s.WriteObjectField(fieldTmpName)
		if f.stream != nil {
			s.WriteVal(f.stream.Metadata(stream.MetaURI))
		} else {
			s.WriteString("")
		}
		s.WriteMore()
		s.WriteObjectField(fieldSize)
		s.WriteInt64(f.size)
		s.WriteMore()
		s.WriteObjectField(fieldError)
		s.WriteInt(f.errCode)
		s.WriteMore()
		s.WriteObjectField(fieldName)
		s.WriteString(f.clientFilename)
		s.WriteMore()
		s.WriteObjectField(fieldType)
		s.WriteString(f.clientMediaType)
		s.WriteObjectEnd()

	case t.list:
		s.WriteArrayStart()
		for i, k := range t.keys {
			if i > 0 {
				s.WriteMore()
			}
			t.children[k].encode(s)
		}
		s.WriteArrayEnd()

	default:
		s.WriteObjectStart()
		for i, k := range t.keys {
			if i > 0 {
				s.WriteMore()
			}
			s.WriteObjectField(k)
			t.children[k].encode(s)
		}
		s.WriteObjectEnd()
	}
}
