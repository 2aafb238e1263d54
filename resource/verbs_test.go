package resource

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/restkit/format"
	"github.com/kbukum/restkit/httpclient"
)

type seen struct {
	method      string
	uri         string
	contentType string
	accept      string
	body        string
}

// apiServer answers each path with the configured status and body and
// records every request it receives.
type apiServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []seen
}

type reply struct {
	status int
	body   string
}

func newAPIServer(t *testing.T, routes map[string]reply) *apiServer {
	t.Helper()
	s := &apiServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, seen{
			method:      r.Method,
			uri:         r.URL.RequestURI(),
			contentType: r.Header.Get("Content-Type"),
			accept:      r.Header.Get("Accept"),
			body:        string(body),
		})
		s.mu.Unlock()

		rep, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			rep = reply{status: http.StatusNotFound}
		}
		if rep.body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(rep.status)
		_, _ = w.Write([]byte(rep.body))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) last(t *testing.T) seen {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("server received no request")
	}
	return s.requests[len(s.requests)-1]
}

func TestGet_QueryScenario(t *testing.T) {
	srv := newAPIServer(t, map[string]reply{"GET /users": {200, `[{"id":7}]`}})
	users := newRoot(t, srv.URL).MustDescend("/users")

	res, err := users.Get(context.Background(), Param("id", "7"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := srv.last(t)
	if got.method != "GET" || got.uri != "/users?id=7" || got.body != "" {
		t.Errorf("unexpected request %+v", got)
	}
	if !res.Success() || res.StatusCode() != 200 {
		t.Errorf("expected success, got %s %d", res.Outcome(), res.StatusCode())
	}
	v, _ := res.Value()
	if string(v.([]byte)) != `[{"id":7}]` {
		t.Errorf("without a format the value is the raw body, got %#v", v)
	}
	if users.Params().Len() != 0 {
		t.Error("call params must not stick to the resource")
	}
}

func TestPost_JSONCreated(t *testing.T) {
	srv := newAPIServer(t, map[string]reply{"POST /users": {201, `{"id":1,"name":"a"}`}})
	users := newRoot(t, srv.URL, WithFormat(format.JSON())).MustDescend("users")

	res, err := users.Post(context.Background(), map[string]string{"name": "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := srv.last(t)
	if got.body != `{"name":"a"}` || got.contentType != "application/json" || got.accept != "application/json" {
		t.Errorf("unexpected request %+v", got)
	}
	if res.Outcome() != httpclient.OutcomeSuccess {
		t.Errorf("expected success, got %s", res.Outcome())
	}
	v, err := res.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["name"] != "a" || m["id"] != float64(1) {
		t.Errorf("unexpected decoded value %#v", v)
	}

	type user struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	u, err := As[user](res)
	if err != nil || u.ID != 1 || u.Name != "a" {
		t.Errorf("As[user] = %+v, %v", u, err)
	}
	if res.Get("name").String() != "a" {
		t.Errorf("expected gjson lookup to find name, got %q", res.Get("name").String())
	}
}

func TestPost_Invalid(t *testing.T) {
	srv := newAPIServer(t, map[string]reply{"POST /users": {422, `{"errors":{"name":["blank"]}}`}})
	users := newRoot(t, srv.URL, WithFormat(format.JSON())).MustDescend("users")

	res, err := users.Post(context.Background(), map[string]string{"name": ""})
	if err != nil {
		t.Fatalf("status errors are not returned by the verb: %v", err)
	}
	if res.Outcome() != httpclient.OutcomeResourceInvalid || res.StatusCode() != 422 {
		t.Errorf("expected resource_invalid 422, got %s %d", res.Outcome(), res.StatusCode())
	}
	v, err := res.Value()
	if v != nil || !httpclient.IsInvalid(err) {
		t.Errorf("expected ResourceInvalid error from Value, got %v %v", v, err)
	}
	if _, err := As[map[string]any](res); !httpclient.IsInvalid(err) {
		t.Errorf("As must return the status error, got %v", err)
	}
	if res.Get("errors.name.0").String() != "blank" {
		t.Error("the raw body stays queryable on error")
	}
}

func TestVerbs_MethodsAndBodies(t *testing.T) {
	srv := newAPIServer(t, map[string]reply{
		"HEAD /r":   {200, ""},
		"DELETE /r": {204, ""},
		"PUT /r":    {200, ""},
		"POST /r":   {200, ""},
	})
	r := newRoot(t, srv.URL).MustDescend("r")
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func() (*Result, error)
		method string
		uri    string
		ct     string
		body   string
	}{
		{"head", func() (*Result, error) { return r.Head(ctx, Param("a", "1")) }, "HEAD", "/r?a=1", "", ""},
		{"delete", func() (*Result, error) { return r.Delete(ctx, Flag("force")) }, "DELETE", "/r?force", "", ""},
		{"put form", func() (*Result, error) { return r.Put(ctx, nil, Param("name", "x y")) }, "PUT", "/r", "application/x-www-form-urlencoded", "name=x+y"},
		{"post raw", func() (*Result, error) {
			return r.Post(ctx, "raw", Param("a", "1"), Header("Content-Type", "text/plain"))
		}, "POST", "/r?a=1", "text/plain", "raw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.call()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.Success() {
				t.Errorf("expected success, got %v", res.Err())
			}
			got := srv.last(t)
			if got.method != tt.method || got.uri != tt.uri || got.contentType != tt.ct || got.body != tt.body {
				t.Errorf("unexpected request %+v", got)
			}
		})
	}
}

func TestVerbs_UnsupportedRawBody(t *testing.T) {
	r := newRoot(t, "http://h")
	if _, err := r.Post(context.Background(), map[string]int{"a": 1}); !errors.Is(err, format.ErrUnsupportedBody) {
		t.Errorf("expected ErrUnsupportedBody without a format, got %v", err)
	}
}

func TestVerbs_Suffix(t *testing.T) {
	srv := newAPIServer(t, map[string]reply{"GET /users.json": {200, `[]`}})
	r := newRoot(t, srv.URL, WithFormat(format.JSON().WithSuffix("")))
	res, err := r.MustDescend("users").Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if srv.last(t).uri != "/users.json" || !res.Success() {
		t.Errorf("expected suffixed path, got %+v", srv.last(t))
	}
}

func TestVerbs_DecodeErrorOverridesSuccess(t *testing.T) {
	srv := newAPIServer(t, map[string]reply{"GET /bad": {200, `not json`}})
	res, err := newRoot(t, srv.URL, WithFormat(format.JSON())).MustDescend("bad").Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success() {
		t.Error("a body that fails to decode is not a success")
	}
	if _, err := res.Value(); err == nil {
		t.Error("expected decode error from Value")
	}
	if res.Outcome() != httpclient.OutcomeSuccess {
		t.Errorf("the status outcome is kept, got %s", res.Outcome())
	}
}

func TestVerbs_EmptySuccessBody(t *testing.T) {
	srv := newAPIServer(t, map[string]reply{"DELETE /users/1": {204, ""}})
	res, err := newRoot(t, srv.URL, WithFormat(format.JSON())).MustDescend("users/1").Delete(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := res.Value()
	if err != nil || v != nil {
		t.Errorf("expected nil value for empty body, got %v %v", v, err)
	}
	if _, err := As[map[string]any](res); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("expected ErrEmptyBody, got %v", err)
	}
}

func TestVerbs_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	r := newRoot(t, srv.URL)
	res, err := r.Get(context.Background(), Timeout(50*time.Millisecond))
	if res != nil || !httpclient.IsTimeout(err) {
		t.Errorf("expected timeout error and no result, got %v %v", res, err)
	}
}

func TestVerbs_CallTimeoutOverridesConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	r, err := New(srv.URL, WithConnectionOptions(httpclient.WithTimeout(100*time.Millisecond)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := r.Get(context.Background()); !httpclient.IsTimeout(err) {
		t.Errorf("expected connection timeout, got %v", err)
	}
	res, err := r.Get(context.Background(), Timeout(2*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.StatusCode() != http.StatusOK || string(res.Body()) != "late" {
		t.Errorf("expected 200 'late', got %d %q", res.StatusCode(), res.Body())
	}
}

func TestSubmit_SyncConnection(t *testing.T) {
	r := newRoot(t, "http://h")
	err := r.Submit(context.Background(), http.MethodGet, nil, func(*Result) {})
	if !errors.Is(err, httpclient.ErrAsyncUnsupported) {
		t.Errorf("expected ErrAsyncUnsupported, got %v", err)
	}
	if err := r.Submit(context.Background(), "PATCH", nil, nil); err == nil {
		t.Error("expected error for unsupported method")
	}
}

func TestSubmit_QueuedBatch(t *testing.T) {
	srv := newAPIServer(t, map[string]reply{
		"GET /users/1":  {200, `{"id":1}`},
		"GET /users/2":  {500, `{"error":"boom"}`},
		"POST /users":   {201, `{"id":3}`},
		"GET /users/99": {404, ""},
	})
	root := newRoot(t, srv.URL, WithFormat(format.JSON()), WithConnectionFactory(QueuedConnectionFactory(0)))
	users := root.MustDescend("users")
	ctx := context.Background()

	var mu sync.Mutex
	results := map[string][]*Result{}
	collect := func(name string) func(*Result) {
		return func(res *Result) {
			mu.Lock()
			results[name] = append(results[name], res)
			mu.Unlock()
		}
	}

	if err := users.MustDescend("1").Submit(ctx, http.MethodGet, nil, collect("one")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := users.MustDescend("2").Submit(ctx, http.MethodGet, nil, collect("two")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := users.Submit(ctx, http.MethodPost, map[string]string{"name": "c"}, collect("three")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	srv.mu.Lock()
	if len(srv.requests) != 0 {
		t.Errorf("submit must not perform I/O, got %d requests", len(srv.requests))
	}
	srv.mu.Unlock()

	if err := root.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, name := range []string{"one", "two", "three"} {
		if len(results[name]) != 1 {
			t.Fatalf("expected exactly one completion for %s, got %d", name, len(results[name]))
		}
	}
	if v, err := results["one"][0].Value(); err != nil || v.(map[string]any)["id"] != float64(1) {
		t.Errorf("one: unexpected %v %v", v, err)
	}
	if _, err := results["two"][0].Value(); !httpclient.IsServerError(err) {
		t.Errorf("two: expected server error, got %v", err)
	}
	if results["three"][0].StatusCode() != 201 || !results["three"][0].Success() {
		t.Errorf("three: expected 201 success, got %d", results["three"][0].StatusCode())
	}
}

func TestSubmit_SyncVerbOnQueuedConnection(t *testing.T) {
	srv := newAPIServer(t, map[string]reply{"GET /a": {200, `{}`}})
	root := newRoot(t, srv.URL, WithConnectionFactory(QueuedConnectionFactory(0)))
	res, err := root.MustDescend("a").Get(context.Background())
	if err != nil || !res.Success() {
		t.Errorf("expected a sync verb to run through the queue, got %v %v", res, err)
	}
}

func TestSubmit_TransportFailureDeliveredAsResult(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	site := srv.URL
	srv.Close()

	root := newRoot(t, site, WithConnectionFactory(QueuedConnectionFactory(0)))
	var got *Result
	if err := root.Submit(context.Background(), http.MethodGet, nil, func(r *Result) { got = r }); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := root.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got == nil {
		t.Fatal("callback not invoked")
	}
	if got.Success() || got.StatusCode() != 0 || got.Outcome() != httpclient.OutcomeConnectionError {
		t.Errorf("expected connection failure result, got %s %d", got.Outcome(), got.StatusCode())
	}
}
