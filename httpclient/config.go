package httpclient

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kbukum/restkit/security"
	"github.com/kbukum/restkit/validation"
)

const defaultTimeout = 30 * time.Second

// Config is the file/env representation of a Connection.
type Config struct {
	// Site is the absolute base address, optionally with user:password@.
	Site string `yaml:"site" mapstructure:"site" validate:"required,http_url"`

	// Username and Password give basic credentials; they override any in Site.
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	// Token gives bearer credentials. Cannot be combined with Username.
	Token string `yaml:"token" mapstructure:"token" validate:"excluded_with=Username"`

	// Timeout is the default request timeout. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Proxy is an explicit proxy URL.
	Proxy string `yaml:"proxy" mapstructure:"proxy" validate:"omitempty,url"`
	// UseEnvProxy honours HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
	UseEnvProxy bool `yaml:"use_env_proxy" mapstructure:"use_env_proxy"`

	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Async makes the connection queued.
	Async bool `yaml:"async" mapstructure:"async"`
	// MaxConcurrency bounds in-flight queued requests. 0 is unlimited.
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency" validate:"gte=0"`

	// RateLimit caps requests per second. 0 disables throttling.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" mapstructure:"burst" validate:"gte=0"`

	UserAgent string            `yaml:"user_agent" mapstructure:"user_agent"`
	Headers   map[string]string `yaml:"headers" mapstructure:"headers"`
	RequestID bool              `yaml:"request_id" mapstructure:"request_id"`
}

// ApplyDefaults fills in zero-value fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.RateLimit > 0 && c.Burst == 0 {
		c.Burst = 1
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	return nil
}

// ConnectionOptions translates the config into connection options.
func (c *Config) ConnectionOptions() ([]ConnectionOption, error) {
	opts := []ConnectionOption{
		WithTimeout(c.Timeout),
		WithHeaders(c.Headers),
	}
	switch {
	case c.Token != "":
		opts = append(opts, WithCredentials(BearerAuth(c.Token)))
	case c.Username != "" || c.Password != "":
		opts = append(opts, WithCredentials(BasicAuth(c.Username, c.Password)))
	}
	if c.Proxy != "" {
		proxy, err := url.Parse(c.Proxy)
		if err != nil {
			return nil, fmt.Errorf("httpclient: invalid proxy: %w", err)
		}
		opts = append(opts, WithProxy(proxy))
	}
	if c.UseEnvProxy {
		opts = append(opts, WithEnvProxy())
	}
	if c.TLS != nil {
		opts = append(opts, WithTLS(c.TLS))
	}
	if c.RateLimit > 0 {
		opts = append(opts, WithRateLimit(c.RateLimit, c.Burst))
	}
	if c.Async {
		opts = append(opts, WithQueue(c.MaxConcurrency))
	}
	if c.UserAgent != "" {
		opts = append(opts, WithUserAgent(c.UserAgent))
	}
	if c.RequestID {
		opts = append(opts, WithRequestID())
	}
	return opts, nil
}

// NewConnectionFromConfig applies defaults, validates cfg and builds the
// connection. extra options are applied after those derived from cfg.
func NewConnectionFromConfig(cfg Config, extra ...ConnectionOption) (*Connection, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := cfg.ConnectionOptions()
	if err != nil {
		return nil, err
	}
	return NewConnection(cfg.Site, append(opts, extra...)...)
}
