package format

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type user struct {
	ID   int    `json:"id" yaml:"id" msgpack:"id" xml:"id,attr"`
	Name string `json:"name" yaml:"name" msgpack:"name" xml:"name"`
}

func TestCodecs_MIME(t *testing.T) {
	tests := []struct {
		codec Codec
		want  string
	}{
		{JSONCodec{}, "application/json"},
		{XMLCodec{}, "application/xml"},
		{YAMLCodec{}, "application/yaml"},
		{MsgPackCodec{}, "application/msgpack"},
	}
	for _, tt := range tests {
		if got := tt.codec.MIME(); got != tt.want {
			t.Errorf("expected MIME %q, got %q", tt.want, got)
		}
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	codecs := []Codec{JSONCodec{}, XMLCodec{}, YAMLCodec{}, MsgPackCodec{}}
	in := user{ID: 7, Name: "Ann"}
	for _, c := range codecs {
		t.Run(c.MIME(), func(t *testing.T) {
			data, err := c.Encode(in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			var out user
			if err := c.Unmarshal(data, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if diff := cmp.Diff(in, out); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCodecs_DecodeGeneric(t *testing.T) {
	tests := []struct {
		codec Codec
		data  string
		want  any
	}{
		{JSONCodec{}, `{"id":7,"tags":["a","b"]}`, map[string]any{"id": float64(7), "tags": []any{"a", "b"}}},
		{JSONCodec{}, `[1,2]`, []any{float64(1), float64(2)}},
		{YAMLCodec{}, "id: 7\nname: Ann\n", map[string]any{"id": 7, "name": "Ann"}},
	}
	for _, tt := range tests {
		t.Run(tt.codec.MIME(), func(t *testing.T) {
			got, err := tt.codec.Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("decode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMsgPack_DecodeGeneric(t *testing.T) {
	c := MsgPackCodec{}
	data, err := c.Encode(map[string]any{"name": "Ann"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok || m["name"] != "Ann" {
		t.Errorf("expected map with name Ann, got %#v", got)
	}
}

func TestCodecs_DecodeErrors(t *testing.T) {
	tests := []struct {
		codec Codec
		data  string
	}{
		{JSONCodec{}, `{"id":`},
		{XMLCodec{}, `<user><name>Ann</user>`},
		{XMLCodec{}, ``},
		{YAMLCodec{}, "id: [1,"},
		{MsgPackCodec{}, "\xc1"},
	}
	for _, tt := range tests {
		t.Run(tt.codec.MIME(), func(t *testing.T) {
			if _, err := tt.codec.Decode([]byte(tt.data)); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestXMLCodec_ElementMap(t *testing.T) {
	data := `<?xml version="1.0"?>
<user id="7">
  <name>Ann</name>
  <tag>a</tag>
  <tag>b</tag>
  <tag>c</tag>
  <address><city>Oslo</city></address>
  <note lang="en">hello</note>
  <empty/>
</user>`
	got, err := XMLCodec{}.Decode([]byte(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		"user": map[string]any{
			"@id":     "7",
			"name":    "Ann",
			"tag":     []any{"a", "b", "c"},
			"address": map[string]any{"city": "Oslo"},
			"note":    map[string]any{"@lang": "en", "#text": "hello"},
			"empty":   "",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("element map mismatch (-want +got):\n%s", diff)
	}
}

func TestXMLCodec_EncodeElementMap(t *testing.T) {
	in := map[string]any{
		"user": map[string]any{
			"@id":  "7",
			"name": "Ann",
			"tag":  []any{"a", "b"},
		},
	}
	data, err := XMLCodec{}.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `<user id="7"><name>Ann</name><tag>a</tag><tag>b</tag></user>`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}

	back, err := XMLCodec{}.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(in, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestXMLCodec_EncodeMultiKeyMapWrapsRoot(t *testing.T) {
	data, err := XMLCodec{}.Encode(map[string]any{"a": 1, "b": "x"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != "<root><a>1</a><b>x</b></root>" {
		t.Errorf("unexpected xml %s", data)
	}
}

func TestXMLCodec_Target(t *testing.T) {
	c := XMLCodec{Target: func() any { return &user{} }}
	got, err := c.Decode([]byte(`<user id="3"><name>Bo</name></user>`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	u, ok := got.(*user)
	if !ok || u.ID != 3 || u.Name != "Bo" {
		t.Errorf("unexpected target value %#v", got)
	}
}

func TestXMLCodec_EscapesText(t *testing.T) {
	data, err := XMLCodec{}.Encode(map[string]any{"q": "a<b&c"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), "a&lt;b&amp;c") {
		t.Errorf("expected escaped text, got %s", data)
	}
}
