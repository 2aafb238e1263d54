package resource

import "github.com/kbukum/restkit/httpclient"

// ConnectionFactory builds the connection for a root Resource.
type ConnectionFactory func(site string, opts ...httpclient.ConnectionOption) (*httpclient.Connection, error)

// DefaultConnectionFactory creates a synchronous connection, or a queued
// one when httpclient.WithQueue is among opts.
func DefaultConnectionFactory(site string, opts ...httpclient.ConnectionOption) (*httpclient.Connection, error) {
	return httpclient.NewConnection(site, opts...)
}

// QueuedConnectionFactory returns a factory whose connections queue
// requests, with at most maxConcurrency in flight during a Run.
func QueuedConnectionFactory(maxConcurrency int) ConnectionFactory {
	return func(site string, opts ...httpclient.ConnectionOption) (*httpclient.Connection, error) {
		return httpclient.NewConnection(site, append(opts, httpclient.WithQueue(maxConcurrency))...)
	}
}
