package dicore

import (
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the file form of ProviderOptions.
//
// Example:
//
//	lifetimePolicy: warn
//	logLevel: info
//	metrics:
//	  enabled: true
//	  namespace: myapp
type Config struct {
	LifetimePolicy LifetimePolicy `yaml:"lifetimePolicy"`
	LogLevel       string         `yaml:"logLevel"`
	Metrics        MetricsConfig  `yaml:"metrics"`
}

// MetricsConfig enables Prometheus metrics on the default registerer.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// LoadConfig reads a YAML configuration. An empty document yields the zero Config.
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := &Config{}

	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// Options converts the configuration into ProviderOptions. A non-empty
// LogLevel builds a production zap logger at that level.
func (c *Config) Options() (*ProviderOptions, error) {
	opts := &ProviderOptions{LifetimePolicy: c.LifetimePolicy}

	if c.LogLevel != "" {
		level, err := zapcore.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
		}

		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		logger, err := zc.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
		opts.Logger = logger
	}

	if c.Metrics.Enabled {
		opts.Registerer = prometheus.DefaultRegisterer
		opts.MetricsNamespace = c.Metrics.Namespace
	}

	return opts, nil
}
