package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/time/rate"
)

const defaultDialTimeout = 30 * time.Second

// endpoint identifies a cached client.
type endpoint struct {
	scheme string
	host   string
	port   string
}

func endpointOf(site *url.URL) endpoint {
	port := site.Port()
	if port == "" {
		switch site.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return endpoint{scheme: site.Scheme, host: site.Hostname(), port: port}
}

// NetTransport is the synchronous Transport. It performs one blocking
// exchange per Execute call over net/http and keeps one client per
// (scheme, host, port).
type NetTransport struct {
	mu      sync.Mutex
	opts    Options
	clients map[endpoint]*http.Client
	limiter *rate.Limiter
}

// NewNetTransport creates a synchronous transport.
func NewNetTransport(opts Options) *NetTransport {
	return &NetTransport{
		opts:    opts,
		clients: make(map[endpoint]*http.Client),
		limiter: newLimiter(opts.RateLimit, opts.Burst),
	}
}

// Configure replaces the transport options. When the proxy, timeout or TLS
// options differ from the current ones every cached client is closed and
// dropped, so no request runs on a connection built for the old settings.
func (t *NetTransport) Configure(opts Options) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.opts.connectionChanged(opts) {
		t.dropClientsLocked()
	}
	if t.opts.RateLimit != opts.RateLimit || t.opts.Burst != opts.Burst {
		t.limiter = newLimiter(opts.RateLimit, opts.Burst)
		t.dropClientsLocked()
	}
	t.opts = opts
}

// CloseIdleConnections closes idle connections of every cached client.
func (t *NetTransport) CloseIdleConnections() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.clients {
		c.CloseIdleConnections()
	}
}

// Execute sends req and reads the full response body. Redirects are
// returned as-is, never followed.
func (t *NetTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req.Site == nil {
		return nil, NewConnectionError(ErrInvalidSite)
	}
	client, timeout, err := t.client(req.Site)
	if err != nil {
		return nil, NewTLSError(err)
	}

	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := req.build(ctx)
	if err != nil {
		return nil, NewConnectionError(err)
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, fmt.Errorf("read response body: %w", err))
	}
	if len(body) == 0 {
		body = nil
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

// client returns the cached client for site, building it on first use.
func (t *NetTransport) client(site *url.URL) (*http.Client, time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := endpointOf(site)
	if c, ok := t.clients[key]; ok {
		return c, t.opts.Timeout, nil
	}

	c, err := t.newClient()
	if err != nil {
		return nil, 0, err
	}
	t.clients[key] = c
	return c, t.opts.Timeout, nil
}

func (t *NetTransport) newClient() (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = proxyFunc(t.opts)

	// The request deadline is carried by the context in Execute only, so a
	// per-request timeout can be longer than the connection default.
	tr.DialContext = (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext

	tlsCfg, err := t.opts.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		tr.TLSClientConfig = tlsCfg
	}

	var rt http.RoundTripper = tr
	if t.limiter != nil {
		rt = &throttle{limiter: t.limiter, next: tr}
	}

	return &http.Client{
		Transport: rt,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

func (t *NetTransport) dropClientsLocked() {
	for key, c := range t.clients {
		c.CloseIdleConnections()
		delete(t.clients, key)
	}
}

func proxyFunc(opts Options) func(*http.Request) (*url.URL, error) {
	switch {
	case opts.Proxy != nil:
		return http.ProxyURL(opts.Proxy)
	case opts.UseEnvProxy:
		fn := httpproxy.FromEnvironment().ProxyFunc()
		return func(r *http.Request) (*url.URL, error) { return fn(r.URL) }
	default:
		return nil
	}
}

// classifyTransportError maps a failed exchange to a timeout, TLS or
// connection error.
func classifyTransportError(ctx context.Context, err error) *Error {
	if isTLSFailure(err) {
		return NewTLSError(err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

func isTLSFailure(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}
