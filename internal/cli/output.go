package cli

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kbukum/restkit/resource"
)

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// printResult writes the response to out. A failed result is reported on
// errOut and turned into errRequestFailed so the exit code reflects it.
func (a *app) printResult(res *resource.Result, head bool) error {
	if head {
		a.printStatus(res)
	} else if err := a.printBody(res); err != nil {
		return err
	}
	if !res.Success() {
		fmt.Fprintf(a.errOut, "%d %s: %v\n", res.StatusCode(), res.Outcome(), res.Err())
		return errRequestFailed
	}
	return nil
}

func (a *app) printBody(res *resource.Result) error {
	if a.flags.query != "" {
		v := res.Get(a.flags.query)
		if v.Exists() {
			_, err := fmt.Fprintln(a.out, v.String())
			return err
		}
		return nil
	}
	body := res.Body()
	if len(body) == 0 {
		return nil
	}
	if _, err := a.out.Write(body); err != nil {
		return err
	}
	if body[len(body)-1] != '\n' {
		_, err := fmt.Fprintln(a.out)
		return err
	}
	return nil
}

func (a *app) printStatus(res *resource.Result) {
	fmt.Fprintf(a.out, "%d %s\n", res.StatusCode(), http.StatusText(res.StatusCode()))
	resp := res.Response()
	if resp == nil {
		return
	}
	names := make([]string, 0, len(resp.Headers))
	for name := range resp.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.out, "%s: %s\n", name, resp.Headers[name])
	}
}
