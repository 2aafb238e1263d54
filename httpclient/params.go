package httpclient

import (
	"net/url"
	"strings"
)

// Params is an ordered set of query or form parameters.
//
// A parameter may carry no value at all (a flag), in which case it is
// encoded as the bare key. Params is a value type: every method that
// changes the set returns a new Params and leaves the receiver untouched,
// so a Params can be shared between resources without synchronization.
type Params struct {
	keys   []string
	values map[string]*string
}

// NewParams builds Params from alternating key/value pairs.
// A trailing key without a value is added as a flag.
func NewParams(kvs ...string) Params {
	var p Params
	for i := 0; i < len(kvs); i += 2 {
		if i+1 < len(kvs) {
			p = p.With(kvs[i], kvs[i+1])
		} else {
			p = p.WithFlag(kvs[i])
		}
	}
	return p
}

// ParseParams parses a raw query string, keeping the order in which keys
// first appear. Keys without "=" become flags.
func ParseParams(rawQuery string) (Params, error) {
	var p Params
	for part := range strings.SplitSeq(rawQuery, "&") {
		if part == "" {
			continue
		}
		rawKey, rawValue, hasValue := strings.Cut(part, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return Params{}, err
		}
		if !hasValue {
			p = p.WithFlag(key)
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return Params{}, err
		}
		p = p.With(key, value)
	}
	return p, nil
}

// With returns a copy of p with key set to value.
func (p Params) With(key, value string) Params {
	return p.set(key, &value)
}

// WithFlag returns a copy of p with key present and no value.
func (p Params) WithFlag(key string) Params {
	return p.set(key, nil)
}

// Without returns a copy of p with key removed.
func (p Params) Without(key string) Params {
	if _, ok := p.values[key]; !ok {
		return p
	}
	out := Params{
		keys:   make([]string, 0, len(p.keys)-1),
		values: make(map[string]*string, len(p.values)-1),
	}
	for _, k := range p.keys {
		if k == key {
			continue
		}
		out.keys = append(out.keys, k)
		out.values[k] = p.values[k]
	}
	return out
}

// Merge returns p overlaid with other. Keys of p keep their position and
// take other's value on collision; keys only in other follow in other's order.
func (p Params) Merge(other Params) Params {
	if other.Len() == 0 {
		return p
	}
	if p.Len() == 0 {
		return other
	}
	out := p.clone(other.Len())
	for _, k := range other.keys {
		if _, ok := out.values[k]; !ok {
			out.keys = append(out.keys, k)
		}
		out.values[k] = other.values[k]
	}
	return out
}

// Get returns the value for key. ok reports whether the key is present;
// a present flag returns ("", true).
func (p Params) Get(key string) (value string, ok bool) {
	v, ok := p.values[key]
	if !ok || v == nil {
		return "", ok
	}
	return *v, true
}

// IsFlag reports whether key is present without a value.
func (p Params) IsFlag(key string) bool {
	v, ok := p.values[key]
	return ok && v == nil
}

// Keys returns the keys in order.
func (p Params) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Len returns the number of parameters.
func (p Params) Len() int {
	return len(p.keys)
}

// Encode renders the parameters as key=value pairs joined by "&", both
// sides query-escaped. Flags are rendered as the bare key.
func (p Params) Encode() string {
	if len(p.keys) == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		if v := p.values[k]; v != nil {
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(*v))
		}
	}
	return b.String()
}

// String implements fmt.Stringer.
func (p Params) String() string {
	return p.Encode()
}

func (p Params) set(key string, value *string) Params {
	out := p.clone(1)
	if _, ok := out.values[key]; !ok {
		out.keys = append(out.keys, key)
	}
	out.values[key] = value
	return out
}

func (p Params) clone(extra int) Params {
	out := Params{
		keys:   make([]string, len(p.keys), len(p.keys)+extra),
		values: make(map[string]*string, len(p.values)+extra),
	}
	copy(out.keys, p.keys)
	for k, v := range p.values {
		out.values[k] = v
	}
	return out
}
