package publishers

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"stream-processor/src/interfaces"
	"stream-processor/src/logger"
	"stream-processor/src/metrics"
	"stream-processor/src/models"

	"github.com/nats-io/nats.go"
)

var ErrNotConnected = errors.New("nats client not connected")

// Outcome labels of metrics.ResultsPublished.
const (
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
)

// -----------------------------------------------------------------------------
// NATSPublisher implements interfaces.IPublisher over NATS core or JetStream
// -----------------------------------------------------------------------------

// NATSPublisher forwards processed results to NATS, one message per result.
type NATSPublisher struct {
	name    string
	config  *models.MNATSConfig
	logger  *logger.Logger
	metrics *metrics.Metrics

	useJetStream bool

	mu sync.RWMutex

	nc         *nats.Conn             // NATS core connection
	js         nats.JetStreamContext  // JetStream context (if enabled)
	serializer interfaces.ISerializer // serialize message before sending

	connected atomic.Bool
}

// -----------------------------------------------------------------------------

// NewNATSPublisher creates a new NATS publisher instance
func NewNATSPublisher(config *models.MNATSConfig, logger *logger.Logger, m *metrics.Metrics, serializer interfaces.ISerializer) *NATSPublisher {
	return &NATSPublisher{
		name:       config.ClientID,
		config:     config,
		logger:     logger,
		metrics:    m,
		serializer: serializer,
	}
}

// -----------------------------------------------------------------------------

// OnProcessedResult publishes result on "<prefix>.processed.<source>". Failures are
// logged and counted, they never reach the batch processor.
func (np *NATSPublisher) OnProcessedResult(result *models.MProcessedResult) {
	subject := ResultSubject(result.Source)

	data, err := np.serializer.Marshal(result)
	if err != nil {
		np.metrics.ResultsPublished.WithLabelValues(OutcomeFailed).Inc()
		np.logger.Error("%s : failed to serialize result %s for %s: %v", np.name, result.ID, subject, err)
		return
	}

	if np.useJetStream {
		err = np.PublishJetStream(subject, data)
	} else {
		err = np.Publish(subject, data)
	}

	if err != nil {
		np.metrics.ResultsPublished.WithLabelValues(OutcomeFailed).Inc()
		np.logger.Error("%s : failed to publish result %s to NATS subject %s: %v",
			np.name, result.ID, np.getSubject(subject), err)
		return
	}
	np.metrics.ResultsPublished.WithLabelValues(OutcomePublished).Inc()
	np.logger.Debug("%s : published result %s (%d values) to %s", np.name, result.ID, len(result.Series), np.getSubject(subject))
}

// -----------------------------------------------------------------------------

// Publish sends raw data to a NATS core subject.
func (np *NATSPublisher) Publish(subject string, data []byte) error {
	if !np.IsConnected() {
		return ErrNotConnected
	}
	np.mu.RLock()
	nc := np.nc
	np.mu.RUnlock()

	msg := nats.NewMsg(np.getSubject(subject))
	msg.Data = data
	msg.Header.Set("Content-Type", np.serializer.ContentType())
	return nc.PublishMsg(msg)
}

// -----------------------------------------------------------------------------

// PublishJetStream sends raw data using JetStream and waits for the ack.
func (np *NATSPublisher) PublishJetStream(subject string, data []byte) error {
	if !np.IsConnected() {
		return ErrNotConnected
	}
	np.mu.RLock()
	js := np.js
	np.mu.RUnlock()
	if js == nil {
		return fmt.Errorf("jetstream is not initialized or enabled")
	}

	fullSubject := np.getSubject(subject)
	msg := nats.NewMsg(fullSubject)
	msg.Data = data
	msg.Header.Set("Content-Type", np.serializer.ContentType())
	if _, err := js.PublishMsg(msg); err != nil {
		return fmt.Errorf("jetstream publish failed for %s: %w", fullSubject, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Connect establishes connection to NATS server and sets up JetStream context if configured.
// The initial connection is retried in the background, so an unreachable server is not
// an error here; IsConnected reports false until it succeeds.
func (np *NATSPublisher) Connect() error {
	np.mu.Lock()
	defer np.mu.Unlock()

	if np.nc != nil && !np.nc.IsClosed() {
		return nil
	}
	if len(np.config.Servers) == 0 {
		return fmt.Errorf("no nats servers configured")
	}

	opts := []nats.Option{
		nats.Name(np.config.ClientID),
		nats.Timeout(np.config.ConnectTimeout),
		nats.ReconnectWait(np.config.ReconnectWait),
		nats.MaxReconnects(np.config.MaxReconnects),
		nats.FlusherTimeout(np.config.FlushTimeout),

		// Connection Event Handlers
		nats.RetryOnFailedConnect(true),
		nats.ConnectHandler(func(nc *nats.Conn) {
			np.logger.Info("%s : NATS connected to %s", np.name, nc.ConnectedUrl())
			np.connected.Store(true)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			np.logger.Warning("%s : NATS connection closed", np.name)
			np.connected.Store(false)
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			np.logger.Warning("%s : NATS disconnected, attempting reconnect: %v", np.name, err)
			np.connected.Store(false)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			np.logger.Info("%s : NATS successfully reconnected to %s", np.name, nc.ConnectedUrl())
			np.connected.Store(true)
		}),
	}

	nc, err := nats.Connect(strings.Join(np.config.Servers, ","), opts...)
	if err != nil {
		return fmt.Errorf("nats connection failed: %w", err)
	}
	np.nc = nc
	np.connected.Store(nc.IsConnected())

	if np.connected.Load() {
		np.logger.Info("%s : successfully connected to NATS at %s", np.name, nc.ConnectedUrl())
	} else {
		np.logger.Warning("%s : NATS not reachable yet at %v, retrying in background", np.name, np.config.Servers)
	}

	if np.config.JetStream != nil && np.config.JetStream.Enabled {
		np.useJetStream = true
		np.logger.Info("%s : publisher using NATS JetStream for persistent result publishing", np.name)

		np.js, err = nc.JetStream()
		if err != nil {
			np.logger.Error("%s : failed to create JetStream context: %v", np.name, err)
			return fmt.Errorf("jetstream context creation failed: %w", err)
		}

		if np.connected.Load() {
			if err := np.ensureStreamExists(); err != nil {
				np.logger.Warning("%s : failed to ensure stream exists: %v (continuing anyway)", np.name, err)
			}
		}
	} else {
		np.useJetStream = false
		np.logger.Info("%s : publisher using NATS Core (fire-and-forget)", np.name)
	}

	return nil
}

// -----------------------------------------------------------------------------

// ensureStreamExists creates the JetStream stream described by the configuration when missing.
func (np *NATSPublisher) ensureStreamExists() error {
	if np.js == nil || np.config.JetStream == nil {
		return fmt.Errorf("jetstream not initialized")
	}

	streamName := np.config.JetStream.StreamName
	if streamName == "" {
		return fmt.Errorf("stream name not configured")
	}

	stream, err := np.js.StreamInfo(streamName)
	if err == nil {
		np.logger.Info("%s : JetStream stream '%s' already exists with %d subjects",
			np.name, streamName, len(stream.Config.Subjects))
		return nil
	}

	np.logger.Info("%s : creating JetStream stream '%s'", np.name, streamName)

	_, err = np.js.AddStream(np.streamConfig())
	if err != nil {
		return fmt.Errorf("failed to create stream '%s': %w", streamName, err)
	}

	np.logger.Info("%s : successfully created JetStream stream '%s' with subjects: %v",
		np.name, streamName, np.config.JetStream.Subjects)
	return nil
}

// -----------------------------------------------------------------------------

func (np *NATSPublisher) streamConfig() *nats.StreamConfig {
	js := np.config.JetStream

	maxAge := js.MaxAge
	if maxAge == 0 {
		maxAge = 72 * time.Hour
	}
	subjects := js.Subjects
	if len(subjects) == 0 {
		subjects = []string{np.getSubject("processed.>")}
	}
	replicas := js.Replicas
	if replicas <= 0 {
		replicas = 1
	}

	return &nats.StreamConfig{
		Name:       js.StreamName,
		Subjects:   subjects,
		Retention:  nats.LimitsPolicy,
		Storage:    nats.FileStorage,
		Replicas:   replicas,
		MaxAge:     maxAge,
		MaxMsgs:    js.MaxMsgs,
		MaxBytes:   js.MaxBytes,
		MaxMsgSize: int32(js.MaxMsgSize),
		Discard:    nats.DiscardOld,
	}
}

// -----------------------------------------------------------------------------

// Disconnect drains pending messages and closes the NATS connection
func (np *NATSPublisher) Disconnect() error {
	np.mu.Lock()
	defer np.mu.Unlock()

	if np.nc == nil || np.nc.IsClosed() {
		return nil
	}

	if np.nc.IsConnected() {
		if err := np.nc.FlushTimeout(np.config.FlushTimeout); err != nil {
			np.logger.Warning("%s : flush before close failed: %v", np.name, err)
		}
	}
	np.nc.Close()
	np.connected.Store(false)
	np.logger.Info("%s : NATS connection closed successfully", np.name)
	return nil
}

// -----------------------------------------------------------------------------

// IsConnected returns connection status
func (np *NATSPublisher) IsConnected() bool {
	return np.connected.Load()
}

// -----------------------------------------------------------------------------

// GetName returns client identifier
func (np *NATSPublisher) GetName() string {
	return np.name
}

// -----------------------------------------------------------------------------

// ResultSubject returns the un-prefixed subject of results computed for source.
func ResultSubject(source string) string {
	token := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(source)
	if token == "" {
		token = "unknown"
	}
	return "processed." + token
}

// -----------------------------------------------------------------------------

// getSubject prepends the configured subject prefix if it exists.
func (np *NATSPublisher) getSubject(subject string) string {
	if np.config.SubjectPrefix != "" {
		return fmt.Sprintf("%s.%s", np.config.SubjectPrefix, subject)
	}
	return subject
}

var _ interfaces.IPublisher = (*NATSPublisher)(nil)
