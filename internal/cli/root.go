// Package cli implements the restkit command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/restkit/config"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
	"github.com/kbukum/restkit/security"
	"github.com/kbukum/restkit/version"
)

// errRequestFailed signals a non-success outcome that was already reported.
var errRequestFailed = errors.New("request failed")

type globalFlags struct {
	configFile string
	user       string
	password   string
	token      string
	format     string
	suffix     bool
	timeout    time.Duration
	proxy      string
	envProxy   bool
	insecure   bool
	query      string
	verbose    bool
	requestID  bool
}

type app struct {
	flags  globalFlags
	cfg    config.Config
	log    *logger.Logger
	out    io.Writer
	errOut io.Writer

	metrics  *observability.ClientMetrics
	shutdown []func(context.Context) error
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errRequestFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

// NewRootCmd builds the command tree writing results to out and
// diagnostics to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "restkit",
		Short: "Talk to REST APIs from the terminal",
		Long: `restkit sends requests to REST APIs, encoding bodies and decoding
responses in JSON, XML, YAML or MessagePack, and runs batches of
requests concurrently.`,
		Version:       version.GetShortVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	f := root.PersistentFlags()
	f.StringVar(&a.flags.configFile, "config", "", "config file (default: ./restkit.yml, ~/.config/restkit/config.yml)")
	f.StringVarP(&a.flags.user, "user", "u", "", "basic auth username")
	f.StringVar(&a.flags.password, "password", "", "basic auth password")
	f.StringVar(&a.flags.token, "token", "", "bearer token")
	f.StringVarP(&a.flags.format, "format", "f", "", "body format: json, xml, yaml or msgpack")
	f.BoolVar(&a.flags.suffix, "suffix", false, "append the format extension to request paths")
	f.DurationVarP(&a.flags.timeout, "timeout", "t", 0, "request timeout (default 30s)")
	f.StringVar(&a.flags.proxy, "proxy", "", "proxy URL")
	f.BoolVar(&a.flags.envProxy, "env-proxy", false, "use HTTP_PROXY, HTTPS_PROXY and NO_PROXY")
	f.BoolVarP(&a.flags.insecure, "insecure", "k", false, "skip TLS certificate verification")
	f.StringVarP(&a.flags.query, "query", "q", "", "print only this gjson path of the response body")
	f.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log requests and responses")
	f.BoolVar(&a.flags.requestID, "request-id", false, "send a random X-Request-Id header")

	for _, m := range []string{"GET", "HEAD", "DELETE", "POST", "PUT"} {
		root.AddCommand(a.newVerbCmd(m))
	}
	root.AddCommand(a.newBatchCmd())
	root.AddCommand(a.newVersionCmd())
	return root
}

// setup loads the configuration, applies flag overrides and starts
// logging and telemetry.
func (a *app) setup(cmd *cobra.Command) error {
	var opts []config.LoaderOption
	if a.flags.configFile != "" {
		opts = append(opts, config.WithConfigFile(a.flags.configFile))
	}
	if err := config.LoadConfig(config.DefaultName, &a.cfg, opts...); err != nil {
		return err
	}
	a.applyFlags(cmd)
	a.cfg.ApplyDefaults()
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.log = logger.NewWithWriter(&a.cfg.Logging, a.cfg.Name, a.errOut)
	logger.SetGlobalLogger(a.log)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.cfg.Tracing != nil {
		tp, err := observability.InitTracer(ctx, *a.cfg.Tracing)
		if err != nil {
			return err
		}
		a.shutdown = append(a.shutdown, tp.Shutdown)
	}
	if a.cfg.Metrics != nil {
		mp, err := observability.InitMeter(ctx, *a.cfg.Metrics)
		if err != nil {
			return err
		}
		a.shutdown = append(a.shutdown, mp.Shutdown)
		if a.metrics, err = observability.NewClientMetrics(observability.Meter()); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command) {
	changed := cmd.Flags().Changed
	c := &a.cfg.Client
	if changed("user") || changed("password") {
		c.Username, c.Password, c.Token = a.flags.user, a.flags.password, ""
	}
	if changed("token") {
		c.Token, c.Username, c.Password = a.flags.token, "", ""
	}
	if changed("timeout") {
		c.Timeout = a.flags.timeout
	}
	if changed("proxy") {
		c.Proxy = a.flags.proxy
	}
	if a.flags.envProxy {
		c.UseEnvProxy = true
	}
	if a.flags.insecure {
		if c.TLS == nil {
			c.TLS = &security.TLSConfig{}
		}
		c.TLS.SkipVerify = true
	}
	if a.flags.requestID {
		c.RequestID = true
	}
	if changed("format") {
		a.cfg.Format = a.flags.format
	}
	if a.flags.suffix {
		a.cfg.Suffix = true
	}
	if a.flags.verbose {
		a.cfg.Logging.Level = "debug"
	}
}

func (a *app) teardown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	for _, fn := range a.shutdown {
		errs = append(errs, fn(ctx))
	}
	a.shutdown = nil
	return errors.Join(errs...)
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return printYAML(a.out, version.GetVersionInfo())
		},
	}
}
