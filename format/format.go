package format

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/restkit/httpclient"
)

const (
	headerAccept      = "Accept"
	headerContentType = "Content-Type"
)

// ErrUnsupportedBody is returned for a body that cannot be sent without a
// Format.
var ErrUnsupportedBody = errors.New("format: body must be []byte, string or io.Reader without a format")

var defaultSuffixes = map[string]string{
	MIMEJSON:    ".json",
	MIMEXML:     ".xml",
	MIMEYAML:    ".yaml",
	MIMEMsgPack: ".msgpack",
}

// Format negotiates the representation of a resource. A Format is
// immutable; the With* methods return modified copies.
type Format struct {
	// MIME is sent as Accept and, for encoded bodies, Content-Type. Empty
	// disables both headers.
	MIME string
	// Codec encodes request bodies and decodes response bodies.
	Codec Codec
	// Suffix is appended to every request path, e.g. ".json".
	Suffix string
}

// New creates a Format for codec, without a suffix.
func New(codec Codec) *Format {
	return &Format{MIME: codec.MIME(), Codec: codec}
}

// JSON returns the application/json format.
func JSON() *Format { return New(JSONCodec{}) }

// XML returns the application/xml format decoding into element maps.
func XML() *Format { return New(XMLCodec{}) }

// YAML returns the application/yaml format.
func YAML() *Format { return New(YAMLCodec{}) }

// MsgPack returns the application/msgpack format.
func MsgPack() *Format { return New(MsgPackCodec{}) }

// ByName returns the built-in format called name: json, xml, yaml or
// msgpack.
func ByName(name string) (*Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return JSON(), nil
	case "xml":
		return XML(), nil
	case "yaml", "yml":
		return YAML(), nil
	case "msgpack":
		return MsgPack(), nil
	default:
		return nil, fmt.Errorf("format: unknown format %q", name)
	}
}

// WithSuffix returns a copy that appends suffix to request paths. An empty
// suffix selects the default for the MIME type (".json", ".xml", ...).
func (f *Format) WithSuffix(suffix string) *Format {
	out := *f
	if suffix == "" {
		suffix = defaultSuffixes[f.MIME]
	}
	out.Suffix = suffix
	return &out
}

// PrepareRequest sets the Accept header, appends the suffix to the path
// and encodes body into req. A nil body leaves req without one. []byte and
// io.Reader bodies are taken as already encoded.
func (f *Format) PrepareRequest(req *httpclient.Request, body any) error {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	if f.MIME != "" {
		req.Headers[headerAccept] = f.MIME
	}
	if f.Suffix != "" {
		req.Path += f.Suffix
	}
	if body == nil {
		return nil
	}

	var (
		data []byte
		err  error
	)
	switch b := body.(type) {
	case []byte, io.Reader:
		data, err = RawBody(b)
	default:
		data, err = f.Codec.Encode(b)
	}
	if err != nil {
		return err
	}
	req.Body = data
	if f.MIME != "" {
		req.Headers[headerContentType] = f.MIME
	}
	return nil
}

// InterpretResponse decodes the response body. An empty body decodes to nil.
func (f *Format) InterpretResponse(resp *httpclient.Response) (any, error) {
	if resp == nil || len(resp.Body) == 0 {
		return nil, nil
	}
	return f.Codec.Decode(resp.Body)
}

// RawBody converts a body sent without a Format. nil means no body.
func RawBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("format: read body: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w, got %T", ErrUnsupportedBody, body)
	}
}
