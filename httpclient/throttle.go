package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// throttle is an http.RoundTripper that waits on a token bucket before
// handing the request to next. A cancelled or expired request context ends
// the wait.
type throttle struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RoundTrip waits for a token, then forwards req. A wait that would
// outlast the request deadline fails early and is reported as
// context.DeadlineExceeded.
func (t *throttle) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := t.limiter.Wait(ctx); err != nil {
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return nil, fmt.Errorf("throttle wait: %w", err)
	}
	return t.next.RoundTrip(req)
}
