package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl"
	"gopkg.in/yaml.v3"
)

// Config defines the server configuration params.
// Durations are strings in time.ParseDuration syntax and numbers are
// signed, so every field decodes the same from hcl, json and yaml.
type Config struct {
	DataDir         string     `json:"data_dir" yaml:"data_dir" hcl:"data_dir"`
	Storage         string     `json:"storage" yaml:"storage" hcl:"storage"`
	CacheSize       int64      `json:"cache_size" yaml:"cache_size" hcl:"cache_size"`
	ProgramID       string     `json:"program_id" yaml:"program_id" hcl:"program_id"`
	ConflictRetries int64      `json:"conflict_retries" yaml:"conflict_retries" hcl:"conflict_retries"`
	ConflictBackoff string     `json:"conflict_backoff" yaml:"conflict_backoff" hcl:"conflict_backoff"`
	Gateway         *Gateway   `json:"gateway" yaml:"gateway" hcl:"gateway"`
	Relayer         *Relayer   `json:"relayer" yaml:"relayer" hcl:"relayer"`
	Telemetry       *Telemetry `json:"telemetry" yaml:"telemetry" hcl:"telemetry"`
	LogLevel        string     `json:"log_level" yaml:"log_level" hcl:"log_level"`
	LogFilePath     string     `json:"log_to" yaml:"log_to" hcl:"log_to"`
	JSONLogFormat   bool       `json:"json_log_format" yaml:"json_log_format" hcl:"json_log_format"`
	MetricsInterval string     `json:"metrics_interval" yaml:"metrics_interval" hcl:"metrics_interval"`
}

// Gateway describes the gateway instance bootstrapped on startup.
// Bootstrapping is skipped when no payer key file is set.
type Gateway struct {
	Seed             string `json:"seed" yaml:"seed" hcl:"seed"`
	GatewayReference string `json:"gateway_reference" yaml:"gateway_reference" hcl:"gateway_reference"`
	TargetNetworkID  int64  `json:"target_network_id" yaml:"target_network_id" hcl:"target_network_id"`
	Owner            string `json:"owner" yaml:"owner" hcl:"owner"`
	PayerKeyFile     string `json:"payer_key_file" yaml:"payer_key_file" hcl:"payer_key_file"`
}

// Relayer defines the outbound relayer configuration params
type Relayer struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" hcl:"enabled"`
	MaxAttempts int64  `json:"max_attempts" yaml:"max_attempts" hcl:"max_attempts"`
	Backoff     string `json:"backoff" yaml:"backoff" hcl:"backoff"`
	BatchSize   int64  `json:"batch_size" yaml:"batch_size" hcl:"batch_size"`
}

// Telemetry holds the config details for metric services.
type Telemetry struct {
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr" hcl:"prometheus_addr"`
}

const (
	// StorageMemory keeps the ledger in memory only
	StorageMemory = "memory"
	// StorageLevelDB keeps the ledger in a leveldb database under the data dir
	StorageLevelDB = "leveldb"
	// StorageBoltDB keeps the ledger in a bolt database under the data dir
	StorageBoltDB = "boltdb"

	// DefaultCacheSize is the number of committed accounts kept in the read cache
	DefaultCacheSize int64 = 1024

	// DefaultConflictRetries specifies how many times a conflicting unit of work is re-run
	DefaultConflictRetries int64 = 5

	// DefaultMetricsInterval specifies the time interval of the in-memory metrics sink.
	DefaultMetricsInterval = 10 * time.Second
)

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir:         "",
		Storage:         StorageLevelDB,
		CacheSize:       DefaultCacheSize,
		ConflictRetries: DefaultConflictRetries,
		ConflictBackoff: "10ms",
		Gateway:         &Gateway{},
		Relayer: &Relayer{
			Enabled:     false,
			MaxAttempts: 15,
			Backoff:     "1s",
			BatchSize:   10,
		},
		Telemetry:       &Telemetry{},
		LogLevel:        "INFO",
		LogFilePath:     "",
		MetricsInterval: DefaultMetricsInterval.String(),
	}
}

// ReadConfigFile reads the config file from the specified path, builds a Config object
// and returns it.
//
// Supported file types: .json, .hcl, .yaml, .yml
func ReadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var unmarshalFunc func([]byte, interface{}) error

	switch {
	case strings.HasSuffix(path, ".hcl"):
		unmarshalFunc = hcl.Unmarshal
	case strings.HasSuffix(path, ".json"):
		unmarshalFunc = json.Unmarshal
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		unmarshalFunc = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("suffix of %s is neither hcl, json, yaml nor yml", path)
	}

	config := DefaultConfig()

	if err := unmarshalFunc(data, config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the values which can not be verified by decoding alone
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageLevelDB, StorageBoltDB:
		if c.DataDir == "" {
			return fmt.Errorf("storage %s requires a data dir", c.Storage)
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative")
	}

	if c.ConflictRetries < 0 {
		return fmt.Errorf("conflict retries must not be negative")
	}

	durations := map[string]string{
		"conflict_backoff": c.ConflictBackoff,
		"metrics_interval": c.MetricsInterval,
	}

	if c.Relayer != nil {
		if c.Relayer.MaxAttempts < 0 || c.Relayer.BatchSize < 0 {
			return fmt.Errorf("relayer limits must not be negative")
		}

		if c.Relayer.Enabled && c.DataDir == "" {
			return fmt.Errorf("relayer requires a data dir")
		}

		durations["relayer.backoff"] = c.Relayer.Backoff
	}

	for name, value := range durations {
		if _, err := ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if c.Gateway != nil && c.Gateway.TargetNetworkID < 0 {
		return fmt.Errorf("target network id must not be negative")
	}

	return nil
}

// ParseDuration parses a duration field, the empty string meaning zero
func ParseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}

	if d < 0 {
		return 0, fmt.Errorf("duration %s is negative", value)
	}

	return d, nil
}
