package httpclient

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/restkit/logger"
)

type queued struct {
	ctx        context.Context
	req        *Request
	onComplete func(*Response, error)
}

// QueueTransport is the queued Transport. Enqueue only records requests;
// Run performs all of them concurrently over the inner transport and
// returns once every callback has been invoked.
//
// Requests enqueued by callbacks while a Run is in progress are performed
// by the same Run in a follow-up round.
type QueueTransport struct {
	inner          Transport
	maxConcurrency int
	log            *logger.Logger

	mu      sync.Mutex
	pending []queued
	running bool
}

// NewQueueTransport creates a queue over inner. maxConcurrency <= 0 means
// every queued request is in flight at once.
func NewQueueTransport(inner Transport, maxConcurrency int, log *logger.Logger) *QueueTransport {
	if log == nil {
		log = logger.Nop()
	}
	return &QueueTransport{
		inner:          inner,
		maxConcurrency: maxConcurrency,
		log:            log,
	}
}

// Configure forwards options to the inner transport.
func (q *QueueTransport) Configure(opts Options) {
	if c, ok := q.inner.(Configurable); ok {
		c.Configure(opts)
	}
}

// CloseIdleConnections forwards to the inner transport.
func (q *QueueTransport) CloseIdleConnections() {
	if ic, ok := q.inner.(interface{ CloseIdleConnections() }); ok {
		ic.CloseIdleConnections()
	}
}

// Enqueue records req. It never blocks on I/O and is safe for concurrent use.
func (q *QueueTransport) Enqueue(ctx context.Context, req *Request, onComplete func(*Response, error)) error {
	if onComplete == nil {
		onComplete = func(*Response, error) {}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, queued{ctx: ctx, req: req, onComplete: onComplete})
	return nil
}

// Pending returns the number of queued requests.
func (q *QueueTransport) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run performs every queued request. It fails with ErrQueueRunning when
// another Run on the same queue has not returned yet.
func (q *QueueTransport) Run(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return ErrQueueRunning
	}
	q.running = true
	q.mu.Unlock()

	q.drain(ctx)
	return nil
}

// Execute performs req synchronously: it is queued and the whole queue is
// run. Called while a Run is active (typically from a completion callback)
// it goes straight to the inner transport, since waiting for the active
// Run from inside it would never return.
func (q *QueueTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return q.inner.Execute(ctx, req)
	}
	var (
		resp *Response
		err  error
	)
	q.running = true
	q.pending = append(q.pending, queued{ctx: ctx, req: req, onComplete: func(r *Response, e error) {
		resp, err = r, e
	}})
	q.mu.Unlock()

	q.drain(ctx)
	return resp, err
}

// drain runs rounds until the queue is empty. The caller must have set
// q.running; drain clears it under the same lock that observes the empty
// queue, so no request is left behind.
func (q *QueueTransport) drain(ctx context.Context) {
	for round := 1; ; round++ {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		if len(batch) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()

		q.log.Debug("running queued requests", logger.Fields("round", round, "count", len(batch)))
		q.runBatch(ctx, batch)
	}
}

func (q *QueueTransport) runBatch(ctx context.Context, batch []queued) {
	// A plain Group: one failed request must not cancel its siblings.
	var g errgroup.Group
	if q.maxConcurrency > 0 {
		g.SetLimit(q.maxConcurrency)
	}
	for _, item := range batch {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				q.complete(item, nil, classifyTransportError(ctx, err))
				return nil
			}
			resp, err := q.inner.Execute(item.ctx, item.req)
			q.complete(item, resp, err)
			return nil
		})
	}
	_ = g.Wait()
}

// complete invokes the callback, recovering a panic so it cannot take
// down the batch.
func (q *QueueTransport) complete(item queued, resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("queued request callback panicked", logger.Fields(
				logger.FieldMethod, item.req.Method,
				logger.FieldURL, item.req.URL(),
				"panic", r,
			))
		}
	}()
	item.onComplete(resp, err)
}
