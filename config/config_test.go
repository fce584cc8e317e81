package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOwner     = "0x0000000000000000000000000000000000000000000000000000000000000002"
	testReference = "0x0000000000000000000000000000000000000000000000000000000000000003"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func assertGatewaySection(t *testing.T, cfg *Config) {
	t.Helper()

	assert.Equal(t, "/tmp/gateway", cfg.DataDir)
	assert.Equal(t, StorageBoltDB, cfg.Storage)
	assert.Equal(t, "custody", cfg.Gateway.Seed)
	assert.Equal(t, testReference, cfg.Gateway.GatewayReference)
	assert.Equal(t, int64(7001), cfg.Gateway.TargetNetworkID)
	assert.Equal(t, testOwner, cfg.Gateway.Owner)
	assert.True(t, cfg.Relayer.Enabled)
	assert.Equal(t, int64(3), cfg.Relayer.MaxAttempts)
	assert.Equal(t, "250ms", cfg.Relayer.Backoff)
	assert.Equal(t, "127.0.0.1:5001", cfg.Telemetry.PrometheusAddr)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestReadConfigFile_JSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{
	"data_dir": "/tmp/gateway",
	"storage": "boltdb",
	"log_level": "DEBUG",
	"gateway": {
		"seed": "custody",
		"gateway_reference": "`+testReference+`",
		"target_network_id": 7001,
		"owner": "`+testOwner+`"
	},
	"relayer": {"enabled": true, "max_attempts": 3, "backoff": "250ms"},
	"telemetry": {"prometheus_addr": "127.0.0.1:5001"}
}`)

	cfg, err := ReadConfigFile(path)
	require.NoError(t, err)

	assertGatewaySection(t, cfg)

	// values absent from the file keep their defaults
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, int64(10), cfg.Relayer.BatchSize)
	assert.Equal(t, DefaultMetricsInterval.String(), cfg.MetricsInterval)
}

func TestReadConfigFile_YAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.yml", `
data_dir: /tmp/gateway
storage: boltdb
log_level: DEBUG
gateway:
  seed: custody
  gateway_reference: "`+testReference+`"
  target_network_id: 7001
  owner: "`+testOwner+`"
relayer:
  enabled: true
  max_attempts: 3
  backoff: 250ms
telemetry:
  prometheus_addr: 127.0.0.1:5001
`)

	cfg, err := ReadConfigFile(path)
	require.NoError(t, err)

	assertGatewaySection(t, cfg)
	assert.Equal(t, DefaultConflictRetries, cfg.ConflictRetries)
}

func TestReadConfigFile_HCL(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.hcl", `
data_dir = "/tmp/gateway"
storage = "boltdb"
log_level = "DEBUG"

gateway {
  seed = "custody"
  gateway_reference = "`+testReference+`"
  target_network_id = 7001
  owner = "`+testOwner+`"
}

relayer {
  enabled = true
  max_attempts = 3
  backoff = "250ms"
  batch_size = 10
}

telemetry {
  prometheus_addr = "127.0.0.1:5001"
}
`)

	cfg, err := ReadConfigFile(path)
	require.NoError(t, err)

	assertGatewaySection(t, cfg)
}

func TestReadConfigFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := ReadConfigFile(writeConfig(t, "config.toml", `storage = "memory"`))
	require.ErrorContains(t, err, "neither hcl, json, yaml nor yml")

	_, err = ReadConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = ReadConfigFile(writeConfig(t, "config.json", `{"storage": "rocksdb"}`))
	require.ErrorContains(t, err, "unknown storage")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		modify func(c *Config)
		err    string
	}{
		{"memory without data dir", func(c *Config) { c.Storage = StorageMemory }, ""},
		{"leveldb without data dir", func(c *Config) {}, "requires a data dir"},
		{"boltdb with data dir", func(c *Config) { c.Storage = StorageBoltDB; c.DataDir = "/tmp" }, ""},
		{"negative cache", func(c *Config) { c.Storage = StorageMemory; c.CacheSize = -1 }, "cache size"},
		{"negative retries", func(c *Config) { c.Storage = StorageMemory; c.ConflictRetries = -1 }, "conflict retries"},
		{"bad backoff", func(c *Config) { c.Storage = StorageMemory; c.ConflictBackoff = "soon" }, "conflict_backoff"},
		{"negative relayer backoff", func(c *Config) {
			c.Storage = StorageMemory
			c.Relayer.Backoff = "-1s"
		}, "relayer.backoff"},
		{"negative relayer attempts", func(c *Config) {
			c.Storage = StorageMemory
			c.Relayer.MaxAttempts = -1
		}, "relayer limits"},
		{"relayer without data dir", func(c *Config) {
			c.Storage = StorageMemory
			c.Relayer.Enabled = true
		}, "relayer requires a data dir"},
		{"negative network id", func(c *Config) {
			c.Storage = StorageMemory
			c.Gateway.TargetNetworkID = -1
		}, "target network id"},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			c.modify(cfg)

			err := cfg.Validate()
			if c.err == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, c.err)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	d, err := ParseDuration("")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = ParseDuration("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = ParseDuration("-1s")
	require.Error(t, err)
}
