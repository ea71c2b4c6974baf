package models

import (
	"time"
)

// -----------------------------------------------------------------------------

// MConfig is the root of the YAML configuration file.
type MConfig struct {
	Name      string           `yaml:"name"`
	Log       MLogConfig       `yaml:"log"`
	Stream    MStreamConfig    `yaml:"stream"`
	Processor MProcessorConfig `yaml:"processor"`
	NATS      MNATSConfig      `yaml:"nats"`
	GRPC      MServerConfig    `yaml:"grpc"`
	REST      MServerConfig    `yaml:"rest"`
}

// -----------------------------------------------------------------------------

// MLogConfig configures the application logger.
type MLogConfig struct {
	Level       string   `yaml:"level"`  // debug, info, warning, error
	Format      string   `yaml:"format"` // json or console
	OutputPaths []string `yaml:"output_paths"`
}

// -----------------------------------------------------------------------------

// MStreamConfig describes the single upstream feed.
type MStreamConfig struct {
	Name              string        `yaml:"name"`
	Provider          string        `yaml:"provider"`  // polygon, binance, finnhub, generic
	Transport         string        `yaml:"transport"` // websocket
	Endpoint          string        `yaml:"endpoint"`
	APIKey            string        `yaml:"api_key"`
	Symbols           []string      `yaml:"symbols"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
}

// -----------------------------------------------------------------------------

// OverflowPolicy selects the producer behaviour when the ingestion queue is full.
type OverflowPolicy string

const (
	OverflowBlock      OverflowPolicy = "block"
	OverflowDropOldest OverflowPolicy = "drop_oldest"
	OverflowReject     OverflowPolicy = "reject"
)

// IsValid reports whether the policy is one of the known values.
func (p OverflowPolicy) IsValid() bool {
	switch p {
	case OverflowBlock, OverflowDropOldest, OverflowReject:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------

// MProcessorConfig configures batching and reduction.
type MProcessorConfig struct {
	BatchSize           int            `yaml:"batch_size"`
	ProcessingInterval  time.Duration  `yaml:"processing_interval"`
	Window              int            `yaml:"window"`
	FlushPartialBatches bool           `yaml:"flush_partial_batches"`
	QueueCapacity       int            `yaml:"queue_capacity"`
	OverflowPolicy      OverflowPolicy `yaml:"overflow_policy"`
	MaxResults          int            `yaml:"max_results"` // 0 keeps every result
}

// -----------------------------------------------------------------------------

// MNATSConfig configures the NATS result publisher.
type MNATSConfig struct {
	Enabled        bool              `yaml:"enabled"`
	Servers        []string          `yaml:"servers"`
	ClientID       string            `yaml:"client_id"`
	SubjectPrefix  string            `yaml:"subject_prefix"`
	Encoding       string            `yaml:"encoding"` // json or gob
	ConnectTimeout time.Duration     `yaml:"connect_timeout"`
	ReconnectWait  time.Duration     `yaml:"reconnect_wait"`
	MaxReconnects  int               `yaml:"max_reconnects"`
	FlushTimeout   time.Duration     `yaml:"flush_timeout"`
	JetStream      *MJetStreamConfig `yaml:"jetstream"`
}

// MJetStreamConfig configures the optional JetStream stream.
type MJetStreamConfig struct {
	Enabled    bool          `yaml:"enabled"`
	StreamName string        `yaml:"stream_name"`
	Subjects   []string      `yaml:"subjects"`
	Replicas   int           `yaml:"replicas"`
	MaxAge     time.Duration `yaml:"max_age"`
	MaxMsgs    int64         `yaml:"max_msgs"`
	MaxBytes   int64         `yaml:"max_bytes"`
	MaxMsgSize int           `yaml:"max_msg_size"`
}

// -----------------------------------------------------------------------------

// MServerConfig configures a listening control-plane server (gRPC or REST).
type MServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// -----------------------------------------------------------------------------

// MEnvOverrides holds values read from the environment (or a .env file)
// that take precedence over the YAML file. Empty values leave the file untouched.
type MEnvOverrides struct {
	Endpoint    string   `env:"STREAM_ENDPOINT"`
	APIKey      string   `env:"STREAM_API_KEY"`
	LogLevel    string   `env:"LOG_LEVEL"`
	NATSServers []string `env:"NATS_SERVERS" envSeparator:","`
}
