package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerUserAgent     = "User-Agent"
	headerRequestID     = "X-Request-Id"

	contentTypeForm = "application/x-www-form-urlencoded"
)

// Request describes one outbound HTTP request. It is built fresh for every
// call and never shared between calls.
type Request struct {
	// Method is the HTTP method (GET, HEAD, POST, PUT, DELETE).
	Method string
	// Site is the absolute base address. Set by the Connection.
	Site *url.URL
	// Path is the absolute path below Site, without a query string.
	Path string
	// Params are sent as the query string, or as a form body for POST and
	// PUT requests without an explicit Body.
	Params Params
	// Headers are request headers with canonical keys.
	Headers map[string]string
	// Body is the encoded request body. Nil means no body.
	Body []byte
	// Timeout overrides the connection timeout for this request when > 0.
	Timeout time.Duration
}

// Response is the raw result of one HTTP exchange.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers, first value per key.
	Headers map[string]string
	// Body is the raw response body (nil for HEAD or empty bodies).
	Body []byte
	// Duration is the wall time the exchange took.
	Duration time.Duration
}

// Header returns the response header value for name, case-insensitively.
func (r *Response) Header(name string) string {
	if r == nil {
		return ""
	}
	return r.Headers[http.CanonicalHeaderKey(name)]
}

// sendsForm reports whether params travel as a urlencoded form body.
func (r *Request) sendsForm() bool {
	if r.Body != nil || r.Params.Len() == 0 {
		return false
	}
	return r.Method == http.MethodPost || r.Method == http.MethodPut
}

// URL returns the full request URL including the query string, if any.
func (r *Request) URL() string {
	u := url.URL{Path: r.Path}
	if r.Site != nil {
		u.Scheme = r.Site.Scheme
		u.Host = r.Site.Host
	}
	s := u.String()
	if r.Params.Len() > 0 && !r.sendsForm() {
		s += "?" + r.Params.Encode()
	}
	return s
}

// build converts r into an *http.Request bound to the connection context.
func (r *Request) build(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	contentType := ""
	switch {
	case r.sendsForm():
		body = strings.NewReader(r.Params.Encode())
		contentType = contentTypeForm
	case r.Body != nil:
		body = bytes.NewReader(r.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, r.URL(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", r.Method, err)
	}
	for k, v := range r.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get(headerContentType) == "" {
		httpReq.Header.Set(headerContentType, contentType)
	}
	return httpReq, nil
}

// MergeHeaders returns base overlaid with override, keys canonicalized.
// Neither input is modified.
func MergeHeaders(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range override {
		out[http.CanonicalHeaderKey(k)] = v
	}
	return out
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
