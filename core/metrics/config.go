package metrics

import (
	"fmt"

	"github.com/kilianp07/usdplan/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr exposes /metrics when a prometheus sink is configured.
	PrometheusAddr string `json:"prometheus_addr"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9102"
	}
}

// Validate checks that every sink names a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	return nil
}

// HasSink reports whether a sink of the given type is configured.
func (c Config) HasSink(kind string) bool {
	for _, s := range c.Sinks {
		if s.Type == kind {
			return true
		}
	}
	return false
}
