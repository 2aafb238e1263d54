package httpclient

import (
	"context"
	"net/url"
	"sync"
	"testing"
)

type transportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f transportFunc) Execute(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// recordingTransport answers every request with status and remembers what
// it was sent and configured with.
type recordingTransport struct {
	status int
	body   []byte

	mu         sync.Mutex
	requests   []*Request
	configured []Options
}

func (r *recordingTransport) Execute(_ context.Context, req *Request) (*Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	status := r.status
	if status == 0 {
		status = 200
	}
	return &Response{StatusCode: status, Body: r.body, Headers: map[string]string{}}, nil
}

func (r *recordingTransport) Configure(opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configured = append(r.configured, opts)
}

func (r *recordingTransport) last(t *testing.T) *Request {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		t.Fatal("no request recorded")
	}
	return r.requests[len(r.requests)-1]
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}
