package factories

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"stream-processor/src/config"
	"stream-processor/src/decoders"
	"stream-processor/src/interfaces"
	"stream-processor/src/logger"
	"stream-processor/src/metrics"
	"stream-processor/src/models"
	"stream-processor/src/transports"
)

// maxLoggedPayload bounds how much of an undecodable message is written to the log.
const maxLoggedPayload = 256

// -----------------------------------------------------------------------------

// StreamFactory creates the decoder and the connection client of the configured stream
// and wires the decode-then-enqueue path between them.
type StreamFactory struct {
	Name    string
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	// OnTick receives every decoded tick, in message order
	OnTick func(ctx context.Context, tick models.MTick) error

	decodeErrors atomic.Uint64
}

// -----------------------------------------------------------------------------

// NewStreamFactory creates a new StreamFactory instance
func NewStreamFactory(config *config.Config, logger *logger.Logger, m *metrics.Metrics, onTick func(context.Context, models.MTick) error) *StreamFactory {
	return &StreamFactory{
		Name:    "StreamFactory",
		Config:  config,
		Logger:  logger,
		Metrics: m,
		OnTick:  onTick,
	}
}

// -----------------------------------------------------------------------------

// CreateDecoder creates the decoder of the configured provider using the dynamic registry.
func (sf *StreamFactory) CreateDecoder() (interfaces.IDecoder, error) {
	stream := &sf.Config.Stream

	constructor, err := decoders.GetConstructor(stream.Provider)
	if err != nil {
		return nil, err
	}

	decoder, err := constructor(stream, sf.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder %s: %w", stream.Provider, err)
	}

	sf.Logger.Info("%s : created decoder %s for stream %s", sf.Name, decoder.GetName(), stream.Name)
	return decoder, nil
}

// -----------------------------------------------------------------------------

// CreateConnectionClient creates the transport client feeding decoder.
func (sf *StreamFactory) CreateConnectionClient(decoder interfaces.IDecoder) (interfaces.IConnectionClient, error) {
	stream := &sf.Config.Stream

	switch stream.Transport {
	case "websocket", "":
		return transports.NewWebSocketClient(
			stream.Name,
			stream,
			decoder,
			sf.Logger,
			sf.Metrics,
			sf.onRawData(decoder),
		), nil
	default:
		return nil, fmt.Errorf("unsupported connection type '%s' for stream %s", stream.Transport, stream.Name)
	}
}

// -----------------------------------------------------------------------------

// CreateDecoderWithConnection creates both decoder and connection client
func (sf *StreamFactory) CreateDecoderWithConnection() (interfaces.IDecoder, interfaces.IConnectionClient, error) {
	decoder, err := sf.CreateDecoder()
	if err != nil {
		return nil, nil, err
	}

	connection, err := sf.CreateConnectionClient(decoder)
	if err != nil {
		return nil, nil, err
	}

	return decoder, connection, nil
}

// -----------------------------------------------------------------------------

// DecodeErrors returns how many messages were dropped as undecodable.
func (sf *StreamFactory) DecodeErrors() uint64 {
	return sf.decodeErrors.Load()
}

// -----------------------------------------------------------------------------

// onRawData builds the transport callback. An undecodable message is logged and
// dropped; it never stops the read loop.
func (sf *StreamFactory) onRawData(decoder interfaces.IDecoder) func(context.Context, []byte) {
	return func(ctx context.Context, message []byte) {
		ticks, err := decoder.ParseMessage(message)
		if err != nil {
			sf.decodeErrors.Add(1)
			sf.Metrics.DecodeErrors.Inc()
			sf.Logger.Error("%s : failed to parse message for %s: %v (raw: %s)", sf.Name, decoder.GetName(), err, truncate(message))
			return
		}

		if sf.OnTick == nil {
			return
		}
		for _, tick := range ticks {
			if err := sf.OnTick(ctx, tick); err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				sf.Logger.Debug("%s : tick not enqueued: %v", sf.Name, err)
			}
		}
	}
}

// -----------------------------------------------------------------------------

func truncate(message []byte) string {
	if len(message) <= maxLoggedPayload {
		return string(message)
	}
	return string(message[:maxLoggedPayload]) + "..."
}
