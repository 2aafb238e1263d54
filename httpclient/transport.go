package httpclient

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/kbukum/restkit/security"
)

var (
	// ErrAsyncUnsupported is returned by ExecuteAsync when the connection's
	// transport cannot queue requests.
	ErrAsyncUnsupported = errors.New("httpclient: transport does not support async mode")
	// ErrQueueRunning is returned when Run is called on a queue that is
	// already running.
	ErrQueueRunning = errors.New("httpclient: queue is already running")
)

// Transport sends one prepared request and returns the raw response.
// Implementations make exactly one attempt.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Queue is a Transport that can hold requests and run them as a batch.
type Queue interface {
	Transport
	// Enqueue registers req without doing any I/O. onComplete is invoked
	// exactly once, during a later Run.
	Enqueue(ctx context.Context, req *Request, onComplete func(*Response, error)) error
	// Run performs every queued request concurrently and returns once all
	// of them have completed.
	Run(ctx context.Context) error
	// Pending returns the number of queued requests.
	Pending() int
}

// Configurable is implemented by transports that depend on connection
// options. Configure is called whenever the options change.
type Configurable interface {
	Configure(opts Options)
}

// Options are the connection-level settings a transport honours.
type Options struct {
	// Proxy is an explicit proxy URL. Nil means no explicit proxy.
	Proxy *url.URL
	// UseEnvProxy resolves the proxy from HTTP_PROXY, HTTPS_PROXY and
	// NO_PROXY when Proxy is nil.
	UseEnvProxy bool
	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
	// TLS configures certificate verification and client certificates.
	TLS *security.TLSConfig
	// RateLimit caps requests per second. Zero disables throttling.
	RateLimit float64
	// Burst is the throttle burst size. Defaults to 1 when RateLimit > 0.
	Burst int
}

// connectionChanged reports whether switching from o to next requires new
// network clients.
func (o Options) connectionChanged(next Options) bool {
	if o.Timeout != next.Timeout || o.UseEnvProxy != next.UseEnvProxy {
		return true
	}
	if proxyString(o.Proxy) != proxyString(next.Proxy) {
		return true
	}
	return !o.TLS.Equal(next.TLS)
}

func proxyString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
