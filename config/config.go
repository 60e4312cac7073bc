// Package config loads the declarative toolscope settings file. Process
// startup itself belongs to the host; this package only parses and
// validates the shim's own configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the declarative shape of toolscope.yaml.
type Config struct {
	// Endpoint is the collector URL records are posted to.
	Endpoint string `yaml:"endpoint"`

	// ServerHost is the logical name stamped on every record.
	ServerHost string `yaml:"server_host"`

	// TimeoutMS bounds each collector POST. Defaults to 5000.
	TimeoutMS int `yaml:"timeout_ms,omitempty"`

	Dispatcher DispatcherConfig `yaml:"dispatcher,omitempty"`
	Journal    JournalConfig    `yaml:"journal,omitempty"`
	OTel       OTelConfig       `yaml:"otel,omitempty"`
}

// DispatcherConfig tunes the async delivery pool.
type DispatcherConfig struct {
	Workers   int `yaml:"workers,omitempty"`
	QueueSize int `yaml:"queue_size,omitempty"`
}

// JournalConfig enables the local SQLite journal when Path is set.
type JournalConfig struct {
	Path           string `yaml:"path,omitempty"`
	PruneSchedule  string `yaml:"prune_schedule,omitempty"`
	RetentionHours int    `yaml:"retention_hours,omitempty"`
}

// OTelConfig enables the OpenTelemetry bridge.
type OTelConfig struct {
	Enabled      bool   `yaml:"enabled,omitempty"`
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	ServiceName  string `yaml:"service_name,omitempty"`
	Insecure     bool   `yaml:"insecure,omitempty"`
}

const (
	defaultTimeoutMS = 5000
	defaultWorkers   = 4
	defaultQueueSize = 256
)

// Load reads, parses, and validates a config file. Environment variable
// references in string values are expanded.
func Load(path string) (Config, error) {
	// #nosec G304 -- path from caller.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %q: %w", path, err)
	}
	return Parse(data)
}

// Parse parses and validates raw config bytes.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("config: endpoint is required")
	}
	if strings.TrimSpace(c.ServerHost) == "" {
		return errors.New("config: server_host is required")
	}
	if c.OTel.Enabled && strings.TrimSpace(c.OTel.OTLPEndpoint) == "" {
		return errors.New("config: otel.otlp_endpoint is required when otel is enabled")
	}
	return nil
}

func (c *Config) expandEnv() {
	c.Endpoint = os.ExpandEnv(c.Endpoint)
	c.ServerHost = os.ExpandEnv(c.ServerHost)
	c.Journal.Path = os.ExpandEnv(c.Journal.Path)
	c.OTel.OTLPEndpoint = os.ExpandEnv(c.OTel.OTLPEndpoint)
}

func (c *Config) applyDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = defaultTimeoutMS
	}
	if c.Dispatcher.Workers <= 0 {
		c.Dispatcher.Workers = defaultWorkers
	}
	if c.Dispatcher.QueueSize <= 0 {
		c.Dispatcher.QueueSize = defaultQueueSize
	}
	if c.OTel.ServiceName == "" {
		c.OTel.ServiceName = "toolscope"
	}
}
