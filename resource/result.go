package resource

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/kbukum/restkit/format"
	"github.com/kbukum/restkit/httpclient"
)

// ErrEmptyBody is returned by As for a response without a body.
var ErrEmptyBody = errors.New("resource: empty response body")

// Result is the outcome of one verb call: either a decoded value or the
// specific error the exchange ended with.
type Result struct {
	value    any
	response *httpclient.ClassifiedResponse
	format   *format.Format
	err      error
}

// newResult decodes a successful response through f. Without a format the
// value is the raw body. A decode failure replaces the success outcome.
func newResult(resp *httpclient.ClassifiedResponse, f *format.Format) *Result {
	r := &Result{response: resp, format: f}
	if err := resp.Err(); err != nil {
		r.err = err
		return r
	}
	if f == nil {
		r.value = resp.Body
		return r
	}
	v, err := f.InterpretResponse(resp.Response)
	if err != nil {
		r.err = fmt.Errorf("resource: decode %s response: %w", f.MIME, err)
		return r
	}
	r.value = v
	return r
}

func failedResult(err error, f *format.Format) *Result {
	return &Result{format: f, err: err}
}

// Value returns the decoded body, or the error the call ended with: the
// classified status error, a transport error or a decode error.
func (r *Result) Value() (any, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.value, nil
}

// MustValue returns the decoded body and panics on error.
func (r *Result) MustValue() any {
	v, err := r.Value()
	if err != nil {
		panic(err)
	}
	return v
}

// Err returns the error Value would return.
func (r *Result) Err() error { return r.err }

// Success reports whether the call succeeded and the body decoded.
func (r *Result) Success() bool { return r.err == nil }

// Outcome returns the classified outcome. Transport failures report their
// transport outcome.
func (r *Result) Outcome() httpclient.Outcome {
	if r.response != nil {
		return r.response.Outcome
	}
	if o, ok := httpclient.OutcomeOf(r.err); ok {
		return o
	}
	return httpclient.OutcomeConnectionError
}

// StatusCode returns the HTTP status, or 0 when no response was received.
func (r *Result) StatusCode() int {
	if r.response == nil {
		return 0
	}
	return r.response.StatusCode
}

// Header returns a response header.
func (r *Result) Header(name string) string {
	if r.response == nil {
		return ""
	}
	return r.response.Header(name)
}

// Body returns the raw response body.
func (r *Result) Body() []byte {
	if r.response == nil {
		return nil
	}
	return r.response.Body
}

// Response returns the classified response, or nil after a transport failure.
func (r *Result) Response() *httpclient.ClassifiedResponse { return r.response }

// Get queries the raw JSON body with a gjson path such as "users.0.name".
// The result does not depend on the outcome.
func (r *Result) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body(), path)
}

// As decodes the body of a successful result into a T using the result's
// codec, or JSON when the resource had no format.
func As[T any](r *Result) (T, error) {
	var out T
	if r.err != nil {
		return out, r.err
	}
	if len(r.Body()) == 0 {
		return out, ErrEmptyBody
	}
	var codec format.Codec = format.JSONCodec{}
	if r.format != nil {
		codec = r.format.Codec
	}
	if err := codec.Unmarshal(r.Body(), &out); err != nil {
		return out, err
	}
	return out, nil
}
