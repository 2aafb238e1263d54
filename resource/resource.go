package resource

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kbukum/restkit/format"
	"github.com/kbukum/restkit/httpclient"
)

// ErrNoConnection is returned when a Resource has no connection to run on.
var ErrNoConnection = errors.New("resource: no connection")

// Resource is an immutable request template bound to a connection.
type Resource struct {
	conn    *httpclient.Connection
	path    string
	params  httpclient.Params
	headers map[string]string
	format  *format.Format
}

type options struct {
	conn     *httpclient.Connection
	factory  ConnectionFactory
	connOpts []httpclient.ConnectionOption
	format   *format.Format
	params   httpclient.Params
	headers  map[string]string
}

// Option configures a root Resource.
type Option func(*options)

// WithConnection uses conn instead of building one. The site passed to New
// then only contributes the root path and params.
func WithConnection(conn *httpclient.Connection) Option {
	return func(o *options) { o.conn = conn }
}

// WithConnectionFactory replaces DefaultConnectionFactory.
func WithConnectionFactory(f ConnectionFactory) Option {
	return func(o *options) { o.factory = f }
}

// WithConnectionOptions passes options to the connection factory.
func WithConnectionOptions(opts ...httpclient.ConnectionOption) Option {
	return func(o *options) { o.connOpts = append(o.connOpts, opts...) }
}

// WithFormat attaches f, inherited by every child.
func WithFormat(f *format.Format) Option {
	return func(o *options) { o.format = f }
}

// WithParams sets root params. They are merged after params in the site
// query string.
func WithParams(p httpclient.Params) Option {
	return func(o *options) { o.params = o.params.Merge(p) }
}

// WithHeaders sets root headers.
func WithHeaders(h map[string]string) Option {
	return func(o *options) { o.headers = httpclient.MergeHeaders(o.headers, h) }
}

// New creates the root Resource for site. The query string of site seeds
// the root params and its path becomes the root path.
func New(site string, opts ...Option) (*Resource, error) {
	o := options{factory: DefaultConnectionFactory}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(site)
	if err != nil {
		return nil, fmt.Errorf("resource: parse site: %w", err)
	}
	params, err := httpclient.ParseParams(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("resource: parse site query: %w", err)
	}
	root := u.Path
	u.RawQuery, u.Fragment, u.Path, u.RawPath = "", "", "", ""

	conn := o.conn
	if conn == nil {
		if conn, err = o.factory(u.String(), o.connOpts...); err != nil {
			return nil, err
		}
	}
	if root == "" {
		root = "/"
	}

	return &Resource{
		conn:    conn,
		path:    root,
		params:  params.Merge(o.params),
		headers: httpclient.MergeHeaders(nil, o.headers),
		format:  o.format,
	}, nil
}

// FromConnection creates a root Resource at the path of conn's site.
func FromConnection(conn *httpclient.Connection, opts ...Option) (*Resource, error) {
	if conn == nil {
		return nil, ErrNoConnection
	}
	return New(conn.Site().String(), append([]Option{WithConnection(conn)}, opts...)...)
}

// Descend returns the child at path. path is resolved like a relative URL
// against r's path taken as a directory, so "." and ".." collapse; an empty
// path keeps r's path. A query string in path is merged into the params
// before those given in opts. r is never modified.
func (r *Resource) Descend(path string, opts ...CallOption) (*Resource, error) {
	path, _, _ = strings.Cut(path, "#")
	path, rawQuery, _ := strings.Cut(path, "?")
	query, err := httpclient.ParseParams(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("resource: parse query of %q: %w", path, err)
	}

	c := r.call(opts)
	child := *r
	child.path = joinPath(r.path, path)
	child.params = r.params.Merge(query).Merge(c.params)
	child.headers = httpclient.MergeHeaders(r.headers, c.headers)
	return &child, nil
}

// MustDescend is Descend for literal paths; it panics on a malformed query.
func (r *Resource) MustDescend(path string, opts ...CallOption) *Resource {
	child, err := r.Descend(path, opts...)
	if err != nil {
		panic(err)
	}
	return child
}

// joinPath resolves ref against base treated as a directory.
func joinPath(base, ref string) string {
	if ref == "" {
		return base
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	b := url.URL{Path: base}
	return b.ResolveReference(&url.URL{Path: ref}).Path
}

// WithFormat returns a copy of r using f.
func (r *Resource) WithFormat(f *format.Format) *Resource {
	child := *r
	child.format = f
	return &child
}

// Path returns the absolute request path.
func (r *Resource) Path() string { return r.path }

// Params returns the resource params.
func (r *Resource) Params() httpclient.Params { return r.params }

// Headers returns a copy of the resource headers.
func (r *Resource) Headers() map[string]string {
	return httpclient.MergeHeaders(nil, r.headers)
}

// Format returns the attached format, or nil.
func (r *Resource) Format() *format.Format { return r.format }

// Connection returns the shared connection.
func (r *Resource) Connection() *httpclient.Connection { return r.conn }

// URL returns the full URL a GET on r would request.
func (r *Resource) URL() string {
	req := httpclient.Request{Method: "GET", Path: r.path, Params: r.params}
	if r.conn != nil {
		req.Site = r.conn.Site()
	}
	return req.URL()
}

func (r *Resource) String() string { return r.URL() }
