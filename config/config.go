package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/usdplan/core/metrics"
	"github.com/kilianp07/usdplan/core/norms"
	"github.com/kilianp07/usdplan/core/store"
	"github.com/kilianp07/usdplan/infra/mqtt"
)

// EnvPrefix prefixes environment overrides, e.g. USD_NORMS__SOLVER__ITERATION_LIMIT.
const EnvPrefix = "USD_"

type Config struct {
	Snapshot SnapshotConfig `json:"snapshot"`
	Norms    norms.Norms    `json:"norms"`
	Year     YearConfig     `json:"year"`
	Store    store.Config   `json:"store"`
	Metrics  metrics.Config `json:"metrics"`
	MQTT     mqtt.Config    `json:"mqtt"`
	Logging  LoggingConfig  `json:"logging"`
}

// Load reads the configuration file at path, applies environment overrides
// and fills defaults. An empty path loads defaults and environment only.
// Norms absent from the file keep their reference values.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Config{Norms: norms.Default()}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section's defaults.
func (c *Config) SetDefaults() {
	c.Snapshot.SetDefaults()
	c.Year.SetDefaults()
	c.Store.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Norms.Validate(); err != nil {
		return fmt.Errorf("norms: %w", err)
	}
	if err := c.Year.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}
