// Package config loads the proxy's YAML configuration into a typed
// struct, with a singleton accessor built on sync.Once.
package config

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	instance *Config
	once     sync.Once
)

// Config aggregates every externally configurable option recognized by
// the proxy.
type Config struct {
	InMemoryShards    int      `yaml:"in_memory_shards"`
	CacheResidentSize int      `yaml:"cache_resident_size"`
	CacheTTLSeconds   int      `yaml:"cache_ttl_seconds"`
	ListeningPort     int      `yaml:"listening_port"`
	HTTP2             bool     `yaml:"http2"`
	TargetAddresses   []string `yaml:"target_addresses"`
	PrometheusPort    int      `yaml:"prometheus_port"`
	HealthcheckPort   int      `yaml:"healthcheck_port"`

	MaxIdleConnectionsPerHost int `yaml:"max_idle_connections_per_host"`

	// Additive keys for the generalized load balancer and backend pool
	// health checking; none change the meaning of any key above.
	LoadBalanceAlgorithm      string         `yaml:"load_balance_algorithm"`
	BackendWeights            map[string]int `yaml:"backend_weights"`
	HealthcheckIntervalSecond int            `yaml:"healthcheck_interval_seconds"`
	HealthcheckTimeoutSeconds int            `yaml:"healthcheck_timeout_seconds"`
	HealthcheckPath           string         `yaml:"healthcheck_path"`
}

// CacheProbatorySize returns the per-shard probatory tier capacity,
// always ten times the resident size.
func (c *Config) CacheProbatorySize() int {
	return 10 * c.CacheResidentSize
}

// DefaultConfig returns the proxy's out-of-the-box configuration, used
// whenever a key is absent from the loaded YAML file.
func DefaultConfig() *Config {
	return &Config{
		InMemoryShards:    8,
		CacheResidentSize: 100_000,
		CacheTTLSeconds:   600,
		ListeningPort:     3001,
		HTTP2:             true,
		TargetAddresses:   []string{"127.0.0.1:3002"},

		MaxIdleConnectionsPerHost: 4,

		LoadBalanceAlgorithm:      "random",
		HealthcheckIntervalSecond: 10,
		HealthcheckTimeoutSeconds: 2,
		HealthcheckPath:           "/healthz",
	}
}

// GetInstance returns the process-wide configuration singleton, lazily
// initialized to defaults on first access.
func GetInstance() *Config {
	once.Do(func() {
		instance = DefaultConfig()
	})
	return instance
}

// LoadConfig reads YAML configuration from path, applying its values
// over the defaults, and installs the result as the singleton. It is
// only effective the first time it (or GetInstance) runs in a process —
// later calls observe the already-initialized singleton.
func LoadConfig(path string) error {
	cfg, err := loadFromFile(path)
	if err != nil {
		return err
	}
	once.Do(func() {
		instance = cfg
	})
	return nil
}

// loadFromFile parses a YAML document at path on top of DefaultConfig,
// so any key the file omits keeps its default value.
func loadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
