package cli

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/restkit/format"
	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/resource"
)

type verbFlags struct {
	params  []string
	headers []string
	data    string
}

func (a *app) newVerbCmd(method string) *cobra.Command {
	var vf verbFlags
	hasBody := method == "POST" || method == "PUT"

	use := strings.ToLower(method) + " URL"
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Send a %s request", method),
		Long: fmt.Sprintf(`Send a %s request.

URL is absolute, or a path resolved against client.site from the config.`, method),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := a.target(args[0], false)
			if err != nil {
				return err
			}
			opts, err := callOptions(vf)
			if err != nil {
				return err
			}

			var body any
			if hasBody && vf.data != "" {
				if body, err = readData(vf.data); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			var res *resource.Result
			switch method {
			case "GET":
				res, err = target.Get(ctx, opts...)
			case "HEAD":
				res, err = target.Head(ctx, opts...)
			case "DELETE":
				res, err = target.Delete(ctx, opts...)
			case "POST":
				res, err = target.Post(ctx, body, opts...)
			case "PUT":
				res, err = target.Put(ctx, body, opts...)
			}
			if err != nil {
				return err
			}
			return a.printResult(res, method == "HEAD")
		},
	}
	cmd.Flags().StringArrayVarP(&vf.params, "param", "p", nil, "param key=value, or a bare key (repeatable)")
	cmd.Flags().StringArrayVarP(&vf.headers, "header", "H", nil, "header 'Name: value' (repeatable)")
	if hasBody {
		cmd.Flags().StringVarP(&vf.data, "data", "d", "", "request body, or @file to read it from a file")
	}
	return cmd
}

func callOptions(vf verbFlags) ([]resource.CallOption, error) {
	var opts []resource.CallOption
	for _, p := range vf.params {
		key, value, ok := strings.Cut(p, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid param %q", p)
		}
		if ok {
			opts = append(opts, resource.Param(key, value))
		} else {
			opts = append(opts, resource.Flag(key))
		}
	}
	for _, h := range vf.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		opts = append(opts, resource.Header(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	return opts, nil
}

// readData returns the literal body, or the contents of the file after @.
func readData(data string) ([]byte, error) {
	if path, ok := strings.CutPrefix(data, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return b, nil
	}
	return []byte(data), nil
}

// target resolves rawURL to a resource. An absolute URL brings its own
// site; anything else descends from client.site.
func (a *app) target(rawURL string, queued bool) (*resource.Resource, error) {
	site, path := a.cfg.Client.Site, rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" && u.Host != "" {
		path = u.RequestURI()
		u.Path, u.RawPath, u.RawQuery, u.Fragment = "", "", "", ""
		site = u.String()
	}
	if site == "" {
		return nil, fmt.Errorf("%q is not an absolute URL and no client.site is configured", rawURL)
	}

	root, err := a.root(site, queued)
	if err != nil {
		return nil, err
	}
	return root.Descend(path)
}

// root builds a root resource for site using the loaded client config.
func (a *app) root(site string, queued bool) (*resource.Resource, error) {
	cc := a.cfg.Client
	cc.Site = site
	if queued {
		cc.Async = true
	}
	conn, err := httpclient.NewConnectionFromConfig(cc,
		httpclient.WithLogger(a.log.WithComponent("connection")),
		httpclient.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}

	var opts []resource.Option
	if a.cfg.Format != "" {
		f, err := format.ByName(a.cfg.Format)
		if err != nil {
			return nil, err
		}
		if a.cfg.Suffix {
			f = f.WithSuffix("")
		}
		opts = append(opts, resource.WithFormat(f))
	}
	return resource.FromConnection(conn, opts...)
}
