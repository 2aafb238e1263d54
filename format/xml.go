package format

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

const (
	xmlAttrPrefix = "@"
	xmlTextKey    = "#text"
	xmlRootName   = "root"
)

var errNoRootElement = errors.New("format/xml: no root element")

// XMLCodec is the application/xml codec.
//
// Without a Target, Decode produces an element map: the root element name
// maps to its content, child elements become keys (repeated names collect
// into []any), attributes are keyed "@name", and an element holding only
// text becomes a string. Text next to children or attributes is kept under
// "#text".
//
//	<user id="7"><name>Ann</name></user>
//	=> map[string]any{"user": map[string]any{"@id": "7", "name": "Ann"}}
type XMLCodec struct {
	// Target, when set, returns a pointer that Decode unmarshals into.
	Target func() any
}

// MIME returns application/xml.
func (XMLCodec) MIME() string { return MIMEXML }

// Encode marshals v with encoding/xml. Element maps, as produced by
// Decode, are written back in the same shape with keys in sorted order.
func (XMLCodec) Encode(v any) ([]byte, error) {
	m, ok := v.(map[string]any)
	if !ok {
		data, err := xml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("format/xml: encode: %w", err)
		}
		return data, nil
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	var err error
	if len(m) == 1 {
		for name, content := range m {
			err = encodeElement(enc, name, content)
		}
	} else {
		err = encodeElement(enc, xmlRootName, m)
	}
	if err == nil {
		err = enc.Flush()
	}
	if err != nil {
		return nil, fmt.Errorf("format/xml: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses data into a value from Target, or into an element map.
func (c XMLCodec) Decode(data []byte) (any, error) {
	if c.Target != nil {
		v := c.Target()
		if err := c.Unmarshal(data, v); err != nil {
			return nil, err
		}
		return v, nil
	}

	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil, errNoRootElement
		}
		if err != nil {
			return nil, fmt.Errorf("format/xml: decode: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			content, err := decodeElement(d, start)
			if err != nil {
				return nil, fmt.Errorf("format/xml: decode: %w", err)
			}
			return map[string]any{start.Name.Local: content}, nil
		}
	}
}

// Unmarshal parses data into v with encoding/xml.
func (XMLCodec) Unmarshal(data []byte, v any) error {
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("format/xml: decode: %w", err)
	}
	return nil
}

func decodeElement(d *xml.Decoder, start xml.StartElement) (any, error) {
	node := make(map[string]any, len(start.Attr))
	for _, a := range start.Attr {
		node[xmlAttrPrefix+a.Name.Local] = a.Value
	}

	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(d, t)
			if err != nil {
				return nil, err
			}
			addChild(node, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			s := strings.TrimSpace(text.String())
			if len(node) == 0 {
				return s, nil
			}
			if s != "" {
				node[xmlTextKey] = s
			}
			return node, nil
		}
	}
}

func addChild(node map[string]any, name string, child any) {
	existing, ok := node[name]
	if !ok {
		node[name] = child
		return
	}
	if list, ok := existing.([]any); ok {
		node[name] = append(list, child)
		return
	}
	node[name] = []any{existing, child}
}

func encodeElement(enc *xml.Encoder, name string, content any) error {
	if list, ok := content.([]any); ok {
		for _, item := range list {
			if err := encodeElement(enc, name, item); err != nil {
				return err
			}
		}
		return nil
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	m, isMap := content.(map[string]any)
	if !isMap {
		if content == nil {
			content = ""
		}
		return enc.EncodeElement(fmt.Sprint(content), start)
	}

	keys := slices.Sorted(maps.Keys(m))
	for _, k := range keys {
		if attr, ok := strings.CutPrefix(k, xmlAttrPrefix); ok {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attr}, Value: fmt.Sprint(m[k])})
		}
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if text, ok := m[xmlTextKey]; ok {
		if err := enc.EncodeToken(xml.CharData(fmt.Sprint(text))); err != nil {
			return err
		}
	}
	for _, k := range keys {
		if k == xmlTextKey || strings.HasPrefix(k, xmlAttrPrefix) {
			continue
		}
		if err := encodeElement(enc, k, m[k]); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
