package format

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// MIME types of the built-in codecs.
const (
	MIMEJSON    = "application/json"
	MIMEXML     = "application/xml"
	MIMEYAML    = "application/yaml"
	MIMEMsgPack = "application/msgpack"
)

// Codec converts between Go values and a wire representation.
type Codec interface {
	// MIME is the media type sent in Accept and Content-Type.
	MIME() string
	// Encode serializes v.
	Encode(v any) ([]byte, error)
	// Decode parses data into the codec's generic representation.
	Decode(data []byte) (any, error)
	// Unmarshal parses data into v, which must be a pointer.
	Unmarshal(data []byte, v any) error
}

// JSONCodec is the application/json codec. Objects decode to
// map[string]any and arrays to []any.
type JSONCodec struct{}

// MIME returns application/json.
func (JSONCodec) MIME() string { return MIMEJSON }

// Encode marshals v as JSON.
func (JSONCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("format/json: encode: %w", err)
	}
	return data, nil
}

// Decode parses JSON data into generic maps, slices and scalars.
func (c JSONCodec) Decode(data []byte) (any, error) {
	var v any
	if err := c.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Unmarshal parses JSON data into v.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("format/json: decode: %w", err)
	}
	return nil
}

// YAMLCodec is the application/yaml codec.
type YAMLCodec struct{}

// MIME returns application/yaml.
func (YAMLCodec) MIME() string { return MIMEYAML }

// Encode marshals v as YAML.
func (YAMLCodec) Encode(v any) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("format/yaml: encode: %w", err)
	}
	return data, nil
}

// Decode parses YAML data into generic maps, slices and scalars.
func (c YAMLCodec) Decode(data []byte) (any, error) {
	var v any
	if err := c.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Unmarshal parses YAML data into v.
func (YAMLCodec) Unmarshal(data []byte, v any) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("format/yaml: decode: %w", err)
	}
	return nil
}

// MsgPackCodec is the application/msgpack codec. Maps decode to
// map[string]any.
type MsgPackCodec struct{}

// MIME returns application/msgpack.
func (MsgPackCodec) MIME() string { return MIMEMsgPack }

// Encode marshals v as MessagePack.
func (MsgPackCodec) Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("format/msgpack: encode: %w", err)
	}
	return data, nil
}

// Decode parses MessagePack data into generic maps, slices and scalars.
func (c MsgPackCodec) Decode(data []byte) (any, error) {
	var v any
	if err := c.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Unmarshal parses MessagePack data into v.
func (MsgPackCodec) Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("format/msgpack: decode: %w", err)
	}
	return nil
}
