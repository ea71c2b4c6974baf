package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"stream-processor/src/models"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// Default returns a configuration holding every default value.
// The stream endpoint is intentionally empty: it has no sensible default.
func Default() *Config {
	return &Config{MConfig: &models.MConfig{
		Name: "stream-processor",
		Log: models.MLogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Stream: models.MStreamConfig{
			Name:              "trades",
			Provider:          "polygon",
			Transport:         "websocket",
			ReconnectInterval: 5 * time.Second,
			HandshakeTimeout:  10 * time.Second,
		},
		Processor: models.MProcessorConfig{
			BatchSize:          1000,
			ProcessingInterval: 500 * time.Millisecond,
			Window:             50,
			QueueCapacity:      100000,
			OverflowPolicy:     models.OverflowBlock,
			MaxResults:         10000,
		},
		NATS: models.MNATSConfig{
			Servers:        []string{"nats://127.0.0.1:4222"},
			ClientID:       "stream-processor",
			SubjectPrefix:  "market",
			Encoding:       "json",
			ConnectTimeout: 5 * time.Second,
			ReconnectWait:  2 * time.Second,
			MaxReconnects:  -1,
			FlushTimeout:   time.Second,
		},
		GRPC: models.MServerConfig{Host: "0.0.0.0", Port: 9090},
		REST: models.MServerConfig{Host: "0.0.0.0", Port: 8080},
	}}
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a Config from YAML content, applying defaults, then environment overrides,
// then validation.
func Parse(data []byte) (*Config, error) {
	// 1. Start from defaults so absent keys keep their default value
	config := Default()
	if err := yaml.Unmarshal(data, config.MConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	// 2. Credentials and endpoints may come from the environment or a .env file
	if err := config.applyEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs configuration validation. Any error here is fatal at startup.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config name cannot be empty")
	}

	// Validate stream
	s := c.Stream
	if s.Name == "" {
		return fmt.Errorf("stream name cannot be empty")
	}
	if s.Provider == "" {
		return fmt.Errorf("stream '%s': provider cannot be empty", s.Name)
	}
	if s.Endpoint == "" {
		return fmt.Errorf("stream '%s': endpoint cannot be empty", s.Name)
	}
	endpoint, err := url.Parse(s.Endpoint)
	if err != nil {
		return fmt.Errorf("stream '%s': invalid endpoint: %w", s.Name, err)
	}
	if endpoint.Scheme != "ws" && endpoint.Scheme != "wss" {
		return fmt.Errorf("stream '%s': endpoint must use ws:// or wss:// (got '%s')", s.Name, endpoint.Scheme)
	}
	if endpoint.Host == "" {
		return fmt.Errorf("stream '%s': endpoint host cannot be empty", s.Name)
	}
	if s.ReconnectInterval <= 0 {
		return fmt.Errorf("stream '%s': reconnect_interval must be positive", s.Name)
	}

	// Validate processor
	p := c.Processor
	if p.BatchSize <= 0 {
		return fmt.Errorf("processor: batch_size must be positive (got %d)", p.BatchSize)
	}
	if p.Window <= 0 {
		return fmt.Errorf("processor: window must be positive (got %d)", p.Window)
	}
	if p.ProcessingInterval <= 0 {
		return fmt.Errorf("processor: processing_interval must be positive")
	}
	if p.QueueCapacity < p.BatchSize {
		return fmt.Errorf("processor: queue_capacity (%d) cannot be smaller than batch_size (%d)", p.QueueCapacity, p.BatchSize)
	}
	if !p.OverflowPolicy.IsValid() {
		return fmt.Errorf("processor: unknown overflow_policy '%s'", p.OverflowPolicy)
	}
	if p.MaxResults < 0 {
		return fmt.Errorf("processor: max_results cannot be negative")
	}

	// Validate control plane ports (only when enabled)
	if c.GRPC.Enabled && (c.GRPC.Port <= 1024 || c.GRPC.Port > 65535) {
		return fmt.Errorf("invalid gRPC port number: %d (must be between 1025 and 65535)", c.GRPC.Port)
	}
	if c.REST.Enabled && (c.REST.Port <= 1024 || c.REST.Port > 65535) {
		return fmt.Errorf("invalid REST port number: %d (must be between 1025 and 65535)", c.REST.Port)
	}

	// Validation of NATS config (minimal check)
	if c.NATS.Enabled {
		if len(c.NATS.Servers) == 0 {
			return fmt.Errorf("NATS servers list cannot be empty")
		}
		if c.NATS.Encoding != "json" && c.NATS.Encoding != "gob" {
			return fmt.Errorf("NATS encoding must be 'json' or 'gob' (got '%s')", c.NATS.Encoding)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// applyEnvironment loads an optional .env file and overlays non-empty variables.
func (c *Config) applyEnvironment() error {
	// A missing .env file is the normal case outside development
	_ = godotenv.Load()

	var overrides models.MEnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return err
	}

	if overrides.Endpoint != "" {
		c.Stream.Endpoint = overrides.Endpoint
	}
	if overrides.APIKey != "" {
		c.Stream.APIKey = overrides.APIKey
	}
	if overrides.LogLevel != "" {
		c.Log.Level = overrides.LogLevel
	}
	if len(overrides.NATSServers) > 0 {
		c.NATS.Servers = overrides.NATSServers
	}
	return nil
}
