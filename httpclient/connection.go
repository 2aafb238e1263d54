package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
	"github.com/kbukum/restkit/security"
	"github.com/kbukum/restkit/version"
)

// ErrInvalidSite is returned for a site that is not an absolute http(s) URL.
var ErrInvalidSite = errors.New("httpclient: site must be an absolute http or https URL")

// ClassifiedResponse is a Response together with its outcome.
type ClassifiedResponse struct {
	*Response
	Outcome Outcome
}

// Classify runs resp through ClassifyStatusCode.
func Classify(resp *Response) *ClassifiedResponse {
	return &ClassifiedResponse{Response: resp, Outcome: ClassifyStatusCode(resp.StatusCode)}
}

// Err returns the specific *Error for a non-success outcome, nil otherwise.
func (c *ClassifiedResponse) Err() error {
	if c == nil || c.Outcome == OutcomeSuccess {
		return nil
	}
	return newStatusError(c.Outcome, c.Response)
}

// Connection binds a site, its credentials and transport options to a
// Transport. It is safe for concurrent use.
type Connection struct {
	site        *url.URL
	credentials Credentials
	headers     map[string]string
	requestID   bool
	log         *logger.Logger
	metrics     *observability.ClientMetrics
	tracer      trace.Tracer

	mu        sync.RWMutex
	opts      Options
	transport Transport

	// construction-time only
	explicitCreds *Credentials
	queued        bool
	queueLimit    int
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithCredentials overrides credentials embedded in the site URL.
func WithCredentials(c Credentials) ConnectionOption {
	return func(conn *Connection) { conn.explicitCreds = &c }
}

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) ConnectionOption {
	return func(conn *Connection) { conn.opts.Timeout = d }
}

// WithProxy routes requests through proxy.
func WithProxy(proxy *url.URL) ConnectionOption {
	return func(conn *Connection) { conn.opts.Proxy = proxy }
}

// WithEnvProxy resolves the proxy from the environment.
func WithEnvProxy() ConnectionOption {
	return func(conn *Connection) { conn.opts.UseEnvProxy = true }
}

// WithTLS sets the TLS options.
func WithTLS(cfg *security.TLSConfig) ConnectionOption {
	return func(conn *Connection) { conn.opts.TLS = cfg }
}

// WithRateLimit throttles requests to rps per second with the given burst.
func WithRateLimit(rps float64, burst int) ConnectionOption {
	return func(conn *Connection) {
		conn.opts.RateLimit = rps
		conn.opts.Burst = burst
	}
}

// WithTransport replaces the default NetTransport.
func WithTransport(t Transport) ConnectionOption {
	return func(conn *Connection) { conn.transport = t }
}

// WithQueue makes the connection queued: verbs can be submitted
// asynchronously and run together. maxConcurrency <= 0 is unlimited.
func WithQueue(maxConcurrency int) ConnectionOption {
	return func(conn *Connection) {
		conn.queued = true
		conn.queueLimit = maxConcurrency
	}
}

// WithLogger sets the logger. Request lines are logged at debug level.
func WithLogger(l *logger.Logger) ConnectionOption {
	return func(conn *Connection) { conn.log = l }
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) ConnectionOption {
	return func(conn *Connection) { conn.headers[headerUserAgent] = ua }
}

// WithHeaders adds default headers sent with every request.
func WithHeaders(h map[string]string) ConnectionOption {
	return func(conn *Connection) { conn.headers = MergeHeaders(conn.headers, h) }
}

// WithRequestID adds a random X-Request-Id header to requests that do
// not carry one.
func WithRequestID() ConnectionOption {
	return func(conn *Connection) { conn.requestID = true }
}

// WithMetrics records every request on m.
func WithMetrics(m *observability.ClientMetrics) ConnectionOption {
	return func(conn *Connection) { conn.metrics = m }
}

// WithTracer sets the tracer used for client spans.
func WithTracer(t trace.Tracer) ConnectionOption {
	return func(conn *Connection) { conn.tracer = t }
}

// NewConnection creates a connection to site. Userinfo in site becomes
// basic credentials unless WithCredentials is given.
func NewConnection(site string, opts ...ConnectionOption) (*Connection, error) {
	u, err := url.Parse(site)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSite, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSite, site)
	}

	c := &Connection{
		headers: map[string]string{headerUserAgent: version.UserAgent()},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.credentials = CredentialsFromURL(u)
	if c.explicitCreds != nil {
		c.credentials = *c.explicitCreds
	}
	stripped := *u
	stripped.User = nil
	c.site = &stripped

	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.tracer == nil {
		c.tracer = observability.Tracer()
	}
	if c.transport == nil {
		c.transport = NewNetTransport(c.opts)
	} else if cfg, ok := c.transport.(Configurable); ok {
		cfg.Configure(c.opts)
	}
	if c.queued {
		if _, ok := c.transport.(Queue); !ok {
			c.transport = NewQueueTransport(c.transport, c.queueLimit, c.log)
		}
	}
	return c, nil
}

// Site returns a copy of the site URL without credentials.
func (c *Connection) Site() *url.URL {
	u := *c.site
	return &u
}

// Credentials returns the connection credentials.
func (c *Connection) Credentials() Credentials {
	return c.credentials
}

// Options returns the current transport options.
func (c *Connection) Options() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts
}

// IsAsync reports whether the transport can queue requests.
func (c *Connection) IsAsync() bool {
	_, ok := c.currentTransport().(Queue)
	return ok
}

// SetTimeout changes the default timeout. Cached network clients built
// for the old value are discarded.
func (c *Connection) SetTimeout(d time.Duration) {
	c.reconfigure(func(o *Options) { o.Timeout = d })
}

// SetProxy changes the proxy. Nil disables the explicit proxy.
func (c *Connection) SetProxy(proxy *url.URL) {
	c.reconfigure(func(o *Options) { o.Proxy = proxy })
}

// SetTLS changes the TLS options.
func (c *Connection) SetTLS(cfg *security.TLSConfig) {
	c.reconfigure(func(o *Options) { o.TLS = cfg })
}

func (c *Connection) reconfigure(apply func(*Options)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	apply(&c.opts)
	if cfg, ok := c.transport.(Configurable); ok {
		cfg.Configure(c.opts)
	}
}

// ExecuteSync performs req and blocks until it completes. A non-nil error
// is a transport failure; status errors are carried by the outcome.
func (c *Connection) ExecuteSync(ctx context.Context, req *Request) (*ClassifiedResponse, error) {
	prepared := c.prepare(req)
	ctx, span := c.begin(ctx, prepared)
	start := time.Now()
	resp, err := c.currentTransport().Execute(ctx, prepared)
	return c.finish(ctx, span, prepared, resp, err, start)
}

// ExecuteAsync queues req. onComplete runs during a later Run, receiving
// either the classified response or the transport failure. It fails with
// ErrAsyncUnsupported on a connection without a queue.
func (c *Connection) ExecuteAsync(ctx context.Context, req *Request, onComplete func(*ClassifiedResponse, error)) error {
	q, ok := c.currentTransport().(Queue)
	if !ok {
		return ErrAsyncUnsupported
	}
	prepared := c.prepare(req)
	c.metrics.RecordQueued(ctx, prepared.Method)
	ctx, span := c.begin(ctx, prepared)
	start := time.Now()
	return q.Enqueue(ctx, prepared, func(resp *Response, err error) {
		classified, err := c.finish(ctx, span, prepared, resp, err, start)
		if onComplete != nil {
			onComplete(classified, err)
		}
	})
}

// Run performs every request queued with ExecuteAsync.
func (c *Connection) Run(ctx context.Context) error {
	q, ok := c.currentTransport().(Queue)
	if !ok {
		return ErrAsyncUnsupported
	}
	return q.Run(ctx)
}

// Close releases idle network connections.
func (c *Connection) Close() error {
	type idleCloser interface{ CloseIdleConnections() }
	if ic, ok := c.currentTransport().(idleCloser); ok {
		ic.CloseIdleConnections()
	}
	return nil
}

func (c *Connection) currentTransport() Transport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transport
}

// prepare copies req with the site and final headers. Connection defaults
// lose to request headers; the Authorization header derived from the
// credentials always wins.
func (c *Connection) prepare(req *Request) *Request {
	out := *req
	out.Site = c.site
	out.Headers = MergeHeaders(c.headers, req.Headers)
	if auth, ok := c.credentials.Authorization(); ok {
		out.Headers[headerAuthorization] = auth
	}
	if c.requestID {
		if _, ok := out.Headers[headerRequestID]; !ok {
			out.Headers[headerRequestID] = uuid.NewString()
		}
	}
	return &out
}

func (c *Connection) begin(ctx context.Context, req *Request) (context.Context, trace.Span) {
	if c.log.DebugEnabled() {
		c.log.Debug(req.Method+" "+req.URL(), logger.Fields(logger.FieldRequestID, req.Headers[headerRequestID]))
	}
	c.metrics.RecordStart(ctx)
	return observability.StartClientSpan(ctx, c.tracer, req.Method, req.URL(), req.Headers)
}

func (c *Connection) finish(ctx context.Context, span trace.Span, req *Request, resp *Response, err error, start time.Time) (*ClassifiedResponse, error) {
	elapsed := time.Since(start)

	if err == nil && resp == nil {
		err = NewConnectionError(errors.New("transport returned no response"))
	}
	if err != nil {
		var herr *Error
		if !errors.As(err, &herr) {
			herr = NewConnectionError(err)
			err = herr
		}
		c.log.Error("request failed", logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldURL, req.URL(),
			logger.FieldOutcome, herr.Outcome.String(),
			logger.FieldError, err.Error(),
		))
		c.metrics.RecordEnd(ctx, req.Method, c.site.Host, herr.Outcome.String(), 0, elapsed)
		observability.EndClientSpan(span, 0, herr.Outcome.String(), err)
		return nil, err
	}

	classified := Classify(resp)
	if c.log.DebugEnabled() {
		c.log.Debug(fmt.Sprintf("--> %d %s (%d %dms)",
			resp.StatusCode, http.StatusText(resp.StatusCode), len(resp.Body), elapsed.Milliseconds()))
	}
	c.metrics.RecordEnd(ctx, req.Method, c.site.Host, classified.Outcome.String(), resp.StatusCode, elapsed)
	observability.EndClientSpan(span, resp.StatusCode, classified.Outcome.String(), nil)
	return classified, nil
}
