package cli

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/resource"
)

// batchFile is the YAML document read by the batch command.
//
//	site: https://api.example.com
//	concurrency: 4
//	requests:
//	  - name: user
//	    method: GET
//	    path: users
//	    params:
//	      id: 7
//	      verbose: ~
type batchFile struct {
	Site        string         `yaml:"site"`
	Concurrency int            `yaml:"concurrency"`
	Requests    []batchRequest `yaml:"requests"`
}

type batchRequest struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Params  yaml.Node         `yaml:"params"`
	Headers map[string]string `yaml:"headers"`
	Body    yaml.Node         `yaml:"body"`
}

func (a *app) newBatchCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Run a file of requests concurrently",
		Long: `Run every request in a YAML batch file through one queued connection.

A line is printed for each request as it completes. The exit status is 1
when any request does not succeed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bf, err := readBatchFile(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				bf.Concurrency = concurrency
			}
			return a.runBatch(cmd, bf)
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "maximum requests in flight (default: unlimited)")
	return cmd
}

func readBatchFile(path string) (*batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var bf batchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parse batch file %s: %w", path, err)
	}
	if len(bf.Requests) == 0 {
		return nil, fmt.Errorf("batch file %s has no requests", path)
	}
	for i := range bf.Requests {
		r := &bf.Requests[i]
		r.Method = strings.ToUpper(r.Method)
		if r.Method == "" {
			r.Method = "GET"
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("#%d", i+1)
		}
	}
	return &bf, nil
}

func (a *app) runBatch(cmd *cobra.Command, bf *batchFile) error {
	site := bf.Site
	if site == "" {
		site = a.cfg.Client.Site
	}
	if site == "" {
		return fmt.Errorf("batch file has no site and no client.site is configured")
	}
	a.cfg.Client.MaxConcurrency = bf.Concurrency

	root, err := a.root(site, true)
	if err != nil {
		return err
	}
	defer root.Connection().Close()

	// Every request is prepared before any is queued, so a bad entry
	// leaves nothing behind on the connection.
	prepared := make([]preparedRequest, 0, len(bf.Requests))
	for _, br := range bf.Requests {
		pr, err := br.prepare(root)
		if err != nil {
			return fmt.Errorf("request %s: %w", br.Name, err)
		}
		prepared = append(prepared, pr)
	}

	ctx := cmd.Context()
	var (
		mu     sync.Mutex
		failed int
	)
	for _, pr := range prepared {
		err = pr.target.Submit(ctx, pr.Method, pr.body, func(res *resource.Result) {
			mu.Lock()
			defer mu.Unlock()
			if !res.Success() {
				failed++
			}
			a.printBatchLine(pr.batchRequest, res)
		}, pr.opts...)
		if err != nil {
			return fmt.Errorf("request %s: %w", pr.Name, err)
		}
	}

	if err := root.Run(ctx); err != nil {
		return err
	}
	if failed > 0 {
		fmt.Fprintf(a.errOut, "%d of %d requests failed\n", failed, len(bf.Requests))
		return errRequestFailed
	}
	return nil
}

func (a *app) printBatchLine(br batchRequest, res *resource.Result) {
	status := fmt.Sprintf("%d %s", res.StatusCode(), res.Outcome())
	if res.StatusCode() == 0 {
		status = fmt.Sprintf("- %s: %v", res.Outcome(), res.Err())
	}
	fmt.Fprintf(a.out, "%s\t%s %s\t%s\n", br.Name, br.Method, br.Path, status)
}

// preparedRequest is a batch entry resolved into Submit arguments.
type preparedRequest struct {
	batchRequest
	target *resource.Resource
	opts   []resource.CallOption
	// body is nil or encoded bytes.
	body any
}

// prepare resolves the request against root, converts its params and
// headers into call options and encodes its body with root's format.
func (br batchRequest) prepare(root *resource.Resource) (preparedRequest, error) {
	pr := preparedRequest{batchRequest: br}
	switch br.Method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodPost, http.MethodPut:
	default:
		return pr, fmt.Errorf("unsupported method %q", br.Method)
	}

	target, err := root.Descend(br.Path)
	if err != nil {
		return pr, err
	}
	params, err := paramsFromNode(&br.Params)
	if err != nil {
		return pr, err
	}
	pr.target = target
	pr.opts = []resource.CallOption{resource.Params(params)}
	if len(br.Headers) > 0 {
		pr.opts = append(pr.opts, resource.Headers(br.Headers))
	}

	if br.Method != http.MethodPost && br.Method != http.MethodPut {
		return pr, nil
	}
	body, err := bodyFromNode(&br.Body)
	if err != nil {
		return pr, err
	}
	switch b := body.(type) {
	case nil:
	case []byte:
		pr.body = b
	default:
		f := root.Format()
		if f == nil {
			return pr, fmt.Errorf("a structured body needs --format")
		}
		data, err := f.Codec.Encode(b)
		if err != nil {
			return pr, err
		}
		pr.body = data
	}
	return pr, nil
}

// paramsFromNode reads a YAML mapping in document order. A null value
// becomes a flag.
func paramsFromNode(n *yaml.Node) (httpclient.Params, error) {
	var p httpclient.Params
	if n.Kind == 0 || n.Tag == "!!null" {
		return p, nil
	}
	if n.Kind != yaml.MappingNode {
		return p, fmt.Errorf("params must be a mapping (line %d)", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		switch {
		case value.Tag == "!!null":
			p = p.WithFlag(key.Value)
		case value.Kind == yaml.ScalarNode:
			p = p.With(key.Value, value.Value)
		default:
			return p, fmt.Errorf("param %q must be a scalar (line %d)", key.Value, value.Line)
		}
	}
	return p, nil
}

// bodyFromNode returns a string body as raw bytes and decodes anything
// else into a value for the format to encode.
func bodyFromNode(n *yaml.Node) (any, error) {
	switch {
	case n.Kind == 0 || n.Tag == "!!null":
		return nil, nil
	case n.Kind == yaml.ScalarNode && n.Tag == "!!str":
		return []byte(n.Value), nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("body (line %d): %w", n.Line, err)
	}
	return v, nil
}
