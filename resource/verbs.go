package resource

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/restkit/format"
	"github.com/kbukum/restkit/httpclient"
)

type callConfig struct {
	params  httpclient.Params
	headers map[string]string
	timeout time.Duration
}

// CallOption adjusts a single verb call or a Descend.
type CallOption func(*callConfig)

// Param adds the param key=value.
func Param(key, value string) CallOption {
	return func(c *callConfig) { c.params = c.params.With(key, value) }
}

// Flag adds a bare param without a value.
func Flag(key string) CallOption {
	return func(c *callConfig) { c.params = c.params.WithFlag(key) }
}

// Params merges p, p winning on collision.
func Params(p httpclient.Params) CallOption {
	return func(c *callConfig) { c.params = c.params.Merge(p) }
}

// Header sets one header.
func Header(key, value string) CallOption {
	return func(c *callConfig) { c.headers = httpclient.MergeHeaders(c.headers, map[string]string{key: value}) }
}

// Headers merges h, h winning on collision.
func Headers(h map[string]string) CallOption {
	return func(c *callConfig) { c.headers = httpclient.MergeHeaders(c.headers, h) }
}

// Timeout overrides the connection timeout for one call. Ignored by
// Descend.
func Timeout(d time.Duration) CallOption {
	return func(c *callConfig) { c.timeout = d }
}

// call collects opts into a config holding only what the options add.
func (r *Resource) call(opts []CallOption) callConfig {
	var c callConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Get sends a GET request.
func (r *Resource) Get(ctx context.Context, opts ...CallOption) (*Result, error) {
	return r.perform(ctx, http.MethodGet, nil, opts)
}

// Head sends a HEAD request.
func (r *Resource) Head(ctx context.Context, opts ...CallOption) (*Result, error) {
	return r.perform(ctx, http.MethodHead, nil, opts)
}

// Delete sends a DELETE request.
func (r *Resource) Delete(ctx context.Context, opts ...CallOption) (*Result, error) {
	return r.perform(ctx, http.MethodDelete, nil, opts)
}

// Post sends a POST request. With a nil body the params are sent as a form.
func (r *Resource) Post(ctx context.Context, body any, opts ...CallOption) (*Result, error) {
	return r.perform(ctx, http.MethodPost, body, opts)
}

// Put sends a PUT request. With a nil body the params are sent as a form.
func (r *Resource) Put(ctx context.Context, body any, opts ...CallOption) (*Result, error) {
	return r.perform(ctx, http.MethodPut, body, opts)
}

// perform runs one verb synchronously. The error is non-nil only when no
// response was received; status errors are carried by the Result.
func (r *Resource) perform(ctx context.Context, method string, body any, opts []CallOption) (*Result, error) {
	req, err := r.request(method, body, opts)
	if err != nil {
		return nil, err
	}
	resp, err := r.conn.ExecuteSync(ctx, req)
	if err != nil {
		return nil, err
	}
	return newResult(resp, r.format), nil
}

// Submit queues a verb on a queued connection. onComplete receives the
// Result during a later Run; a transport failure arrives as a Result whose
// Err is set. Fails with httpclient.ErrAsyncUnsupported on a synchronous
// connection.
func (r *Resource) Submit(ctx context.Context, method string, body any, onComplete func(*Result), opts ...CallOption) error {
	if !isVerb(method) {
		return fmt.Errorf("resource: unsupported method %q", method)
	}
	if !verbHasBody(method) {
		body = nil
	}
	req, err := r.request(method, body, opts)
	if err != nil {
		return err
	}
	return r.conn.ExecuteAsync(ctx, req, func(resp *httpclient.ClassifiedResponse, err error) {
		if onComplete == nil {
			return
		}
		if err != nil {
			onComplete(failedResult(err, r.format))
			return
		}
		onComplete(newResult(resp, r.format))
	})
}

// Run performs every request submitted on r's connection, including those
// submitted through other resources sharing it.
func (r *Resource) Run(ctx context.Context) error {
	if r.conn == nil {
		return ErrNoConnection
	}
	return r.conn.Run(ctx)
}

// request builds a fresh request for one call.
func (r *Resource) request(method string, body any, opts []CallOption) (*httpclient.Request, error) {
	if r.conn == nil {
		return nil, ErrNoConnection
	}
	c := r.call(opts)
	req := &httpclient.Request{
		Method:  method,
		Path:    r.path,
		Params:  r.params.Merge(c.params),
		Headers: httpclient.MergeHeaders(r.headers, c.headers),
		Timeout: c.timeout,
	}

	if r.format != nil {
		if err := r.format.PrepareRequest(req, body); err != nil {
			return nil, fmt.Errorf("resource: %s %s: %w", method, r.path, err)
		}
		return req, nil
	}
	data, err := format.RawBody(body)
	if err != nil {
		return nil, fmt.Errorf("resource: %s %s: %w", method, r.path, err)
	}
	req.Body = data
	return req, nil
}

func isVerb(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodPost, http.MethodPut:
		return true
	}
	return false
}

func verbHasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut
}
