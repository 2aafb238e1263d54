package config

import (
	"fmt"

	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
	"github.com/kbukum/restkit/validation"
)

// DefaultName is the service name used for logs, traces and env prefixes.
const DefaultName = "restkit"

// Config is the restkit configuration file.
//
//	name: restkit
//	format: json
//	client:
//	  site: https://api.example.com
//	  timeout: 10s
//	logging:
//	  level: debug
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"omitempty,oneof=development staging production"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging logger.Config     `yaml:"logging" mapstructure:"logging"`
	Client  httpclient.Config `yaml:"client" mapstructure:"client" validate:"-"`

	// Format names the body format: json, xml, yaml or msgpack. Empty sends
	// bodies as-is.
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json xml yaml yml msgpack"`
	// Suffix appends the format extension to request paths.
	Suffix bool `yaml:"suffix" mapstructure:"suffix"`

	// Tracing and Metrics enable OTLP export when set.
	Tracing *observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics *observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
	c.Client.ApplyDefaults()

	if c.Tracing != nil {
		applyTracerDefaults(c.Tracing, observability.DefaultTracerConfig(c.Name), c.Environment)
	}
	if c.Metrics != nil {
		applyMeterDefaults(c.Metrics, observability.DefaultMeterConfig(c.Name), c.Environment)
	}
}

// Validate checks the configuration. The client section is validated when
// a connection is built from it, since the site may come from elsewhere.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

func applyTracerDefaults(tc *observability.TracerConfig, def observability.TracerConfig, env string) {
	if tc.ServiceName == "" {
		tc.ServiceName = def.ServiceName
	}
	if tc.ServiceVersion == "" {
		tc.ServiceVersion = def.ServiceVersion
	}
	if tc.Environment == "" {
		tc.Environment = env
	}
	if tc.Endpoint == "" {
		tc.Endpoint = def.Endpoint
		tc.Insecure = def.Insecure
	}
	if tc.SampleRate == 0 {
		tc.SampleRate = def.SampleRate
	}
}

func applyMeterDefaults(mc *observability.MeterConfig, def observability.MeterConfig, env string) {
	if mc.ServiceName == "" {
		mc.ServiceName = def.ServiceName
	}
	if mc.ServiceVersion == "" {
		mc.ServiceVersion = def.ServiceVersion
	}
	if mc.Environment == "" {
		mc.Environment = env
	}
	if mc.Endpoint == "" {
		mc.Endpoint = def.Endpoint
		mc.Insecure = def.Insecure
	}
	if mc.Interval == 0 {
		mc.Interval = def.Interval
	}
}
