package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/usdplan/core/norms"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `snapshot:
  path: "plants/site.yaml"
norms:
  solver:
    iteration_limit: 30
    aux_tolerance_mwh: 0.5
  power:
    gt_aux_per_kwh: 0.015
year:
  concurrency: 6
store:
  backend: jsonl
  path: out/results.jsonl
  max_size_mb: 10
metrics:
  sinks:
    - type: prometheus
    - type: influx
      conf:
        url: http://influx:8086
        bucket: plan
  prometheus_addr: ":9200"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  topic_prefix: site1
  qos: 1
logging:
  level: debug
  format: console
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"snapshot.path", cfg.Snapshot.Path, "plants/site.yaml"},
		{"iteration_limit", cfg.Norms.Solver.IterationLimit, 30},
		{"aux_tolerance", cfg.Norms.Solver.AuxToleranceMWh, 0.5},
		{"gt_aux", cfg.Norms.Power.GTAuxPerKWh, 0.015},
		{"stg_aux kept", cfg.Norms.Power.STGAuxPerKWh, norms.Default().Power.STGAuxPerKWh},
		{"steam kept", cfg.Norms.Steam, norms.Default().Steam},
		{"concurrency", cfg.Year.Concurrency, 6},
		{"store.backend", cfg.Store.Backend, "jsonl"},
		{"store.max_size", cfg.Store.MaxSizeMB, 10},
		{"metrics.sinks", len(cfg.Metrics.Sinks), 2},
		{"metrics.influx.url", cfg.Metrics.Sinks[1].Conf["url"], "http://influx:8086"},
		{"metrics.addr", cfg.Metrics.PrometheusAddr, ":9200"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.prefix", cfg.MQTT.TopicPrefix, "site1"},
		{"mqtt.qos", cfg.MQTT.QoS, byte(1)},
		{"mqtt.client_id default", cfg.MQTT.ClientID, "usdplan"},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"logging.format", cfg.Logging.Format, "console"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, norms.Default(), cfg.Norms)
	assert.Equal(t, "plant.yaml", cfg.Snapshot.Path)
	assert.Equal(t, 4, cfg.Year.Concurrency)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "usdplan.db", cfg.Store.Path)
	assert.Equal(t, ":9102", cfg.Metrics.PrometheusAddr)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.json", `{"year":{"concurrency":2},"logging":{"level":"warn"}}`)
	t.Setenv("USD_NORMS__SOLVER__ITERATION_LIMIT", "12")
	t.Setenv("USD_YEAR__CONCURRENCY", "8")
	t.Setenv("USD_STORE__BACKEND", "none")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Norms.Solver.IterationLimit)
	assert.Equal(t, 8, cfg.Year.Concurrency)
	assert.Equal(t, "none", cfg.Store.Backend)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"bad norms":   "norms:\n  solver:\n    iteration_limit: 0\n",
		"bad store":   "store:\n  backend: redis\n",
		"bad level":   "logging:\n  level: loud\n",
		"bad format":  "logging:\n  format: xml\n",
		"bad year":    "year:\n  concurrency: 20\n",
		"mqtt broker": "mqtt:\n  enabled: true\n",
		"sink type":   "metrics:\n  sinks:\n    - conf: {}\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", data))
			assert.Error(t, err)
		})
	}
	_, err := Load("config.toml")
	assert.Error(t, err)
}
