package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/therealutkarshpriyadarshi/csvlog/internal/sink"
	"github.com/therealutkarshpriyadarshi/csvlog/internal/writer"
	"github.com/therealutkarshpriyadarshi/csvlog/pkg/types"
)

// Config represents the main configuration
type Config struct {
	// Schema is the column specification for the CSV output.
	Schema string `yaml:"schema"`

	// RenderConstants writes constant columns into every line when true;
	// when false they are suppressed from the output.
	RenderConstants bool `yaml:"render_constants"`

	// Service names the producing service for the Service column.
	Service string `yaml:"service,omitempty"`

	// BuildID pins the BuildId column; generated per run when empty.
	BuildID string `yaml:"build_id,omitempty"`

	// MinLevel is the severity floor for rendered events.
	MinLevel string `yaml:"min_level"`

	Sink    SinkConfig    `yaml:"sink"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SinkConfig defines the rotating file sink
type SinkConfig struct {
	Path         string `yaml:"path"`
	MaxFileSize  int64  `yaml:"max_file_size,omitempty"`
	MaxFileCount int    `yaml:"max_file_count,omitempty"`
	AutoFlush    *bool  `yaml:"auto_flush,omitempty"`
	Compression  string `yaml:"compression,omitempty"`
}

// LoggingConfig defines the agent's own diagnostics logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// MetricsConfig defines the metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// Default values
const (
	DefaultSchema      = "PreciseTimeStamp,LogLevelFriendly,ThreadId,Message"
	DefaultMinLevel    = "info"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultMetricsAddr = ":9090"
	DefaultMetricsPath = "/metrics"
)

// Load loads configuration from a YAML file with environment variable overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(expandedData, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration
func (c *Config) applyDefaults() {
	if c.Schema == "" {
		c.Schema = DefaultSchema
	}
	if c.MinLevel == "" {
		c.MinLevel = DefaultMinLevel
	}
	if c.Sink.AutoFlush == nil {
		autoFlush := true
		c.Sink.AutoFlush = &autoFlush
	}
	if c.Sink.Compression == "" {
		c.Sink.Compression = string(sink.CompressionNone)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			c.Metrics.Address = DefaultMetricsAddr
		}
		if c.Metrics.Path == "" {
			c.Metrics.Path = DefaultMetricsPath
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Sink.Path == "" {
		return fmt.Errorf("sink path must be configured")
	}
	if c.Sink.MaxFileSize < 0 {
		return fmt.Errorf("sink max_file_size must not be negative")
	}
	if c.Sink.MaxFileCount < 0 {
		return fmt.Errorf("sink max_file_count must not be negative")
	}

	if _, ok := types.ParseLevel(c.MinLevel); !ok {
		return fmt.Errorf("invalid min_level: %s", c.MinLevel)
	}

	if _, err := sink.GetCompressor(sink.Compression(c.Sink.Compression)); err != nil {
		return fmt.Errorf("invalid sink compression: %w", err)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// WriterConfig translates the file configuration into a writer config.
func (c *Config) WriterConfig() writer.Config {
	minLevel, _ := types.ParseLevel(c.MinLevel)

	autoFlush := true
	if c.Sink.AutoFlush != nil {
		autoFlush = *c.Sink.AutoFlush
	}

	return writer.Config{
		SchemaSpec:      c.Schema,
		RenderConstants: c.RenderConstants,
		MinLevel:        minLevel,
		Service:         c.Service,
		BuildID:         c.BuildID,
		Sink: sink.FileConfig{
			Path:         c.Sink.Path,
			MinLevel:     minLevel,
			AutoFlush:    autoFlush,
			MaxFileSize:  c.Sink.MaxFileSize,
			MaxFileCount: c.Sink.MaxFileCount,
			Compression:  sink.Compression(c.Sink.Compression),
		},
	}
}

// LoadOrDefault loads configuration from file or returns a default configuration
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	autoFlush := true
	return &Config{
		Schema:   DefaultSchema,
		MinLevel: DefaultMinLevel,
		Sink: SinkConfig{
			Path:        "/var/log/csvlog/app.csv",
			AutoFlush:   &autoFlush,
			Compression: string(sink.CompressionNone),
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
