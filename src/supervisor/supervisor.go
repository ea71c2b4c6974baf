package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"stream-processor/src/config"
	"stream-processor/src/factories"
	"stream-processor/src/interfaces"
	"stream-processor/src/logger"
	"stream-processor/src/metrics"
	"stream-processor/src/models"
	"stream-processor/src/processor"
	"stream-processor/src/publishers"
	"stream-processor/src/serializers"
)

var ErrAlreadyStarted = errors.New("supervisor already started")

// -----------------------------------------------------------------------------
// Core Application Struct
// -----------------------------------------------------------------------------

// StreamSupervisor owns the pipeline: upstream source, ingestion queue, batch
// worker, periodic flusher and the optional result publisher.
type StreamSupervisor struct {
	Name    string
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	// Publisher forwards processed results to the message bus, nil when disabled
	Publisher interfaces.IPublisher
	// Factory dependency to create the decoder and connection client
	Factory   *factories.StreamFactory
	Source    *StreamSource
	Queue     *processor.IngestionQueue
	Processor *processor.BatchProcessor
	Flusher   *processor.PeriodicFlusher

	mu      sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
}

// -----------------------------------------------------------------------------

// NewStreamSupervisor wires every component from the configuration. Nothing runs until Start.
func NewStreamSupervisor(config *config.Config, logger *logger.Logger, m *metrics.Metrics) (*StreamSupervisor, error) {
	s := &StreamSupervisor{
		Name:    "StreamSupervisor",
		Config:  config,
		Logger:  logger,
		Metrics: m,
	}

	var opts []processor.Option
	if config.NATS.Enabled {
		serializer, err := serializers.NewSerializer(config.NATS.Encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to create result serializer: %w", err)
		}
		publisher := publishers.NewNATSPublisher(&config.NATS, logger.Named("nats"), m, serializer)
		s.Publisher = publisher
		opts = append(opts, processor.WithSinks(publisher))
	}

	pc := config.Processor
	s.Queue = processor.NewIngestionQueue(pc.QueueCapacity, pc.OverflowPolicy)
	s.Processor = processor.NewBatchProcessor(config.Stream.Name, pc, s.Queue, logger.Named("processor"), m, opts...)
	s.Flusher = processor.NewPeriodicFlusher(config.Stream.Name, s.Processor, pc.ProcessingInterval, pc.FlushPartialBatches, logger.Named("flusher"))

	s.Factory = factories.NewStreamFactory(config, logger.Named("stream"), m, s.Processor.Enqueue)
	decoder, client, err := s.Factory.CreateDecoderWithConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to create stream source: %w", err)
	}
	s.Source = &StreamSource{
		Name:    config.Stream.Name,
		Logger:  logger.Named("source"),
		Decoder: decoder,
		Client:  client,
	}

	return s, nil
}

// -----------------------------------------------------------------------------
// Lifecycle Methods
// -----------------------------------------------------------------------------

// Start connects the publisher then launches the worker, the flusher and the source.
// It returns immediately; everything stops when ctx ends or Stop is called.
func (s *StreamSupervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyStarted
	}
	s.Logger.Info("%s : starting pipeline for %s", s.Name, s.Source.GetName())

	// fail fast when the publisher cannot be set up
	if s.Publisher != nil {
		if err := s.Publisher.Connect(); err != nil {
			return fmt.Errorf("failed to connect to publisher: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.Processor.RunWorker(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.Flusher.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		if err := s.Source.Run(runCtx); err != nil {
			s.Logger.Error("%s : source %s exited: %v", s.Name, s.Source.GetName(), err)
		}
	}()

	s.Logger.Info("%s : pipeline started (batch size %d, window %d, interval %s)", s.Name,
		s.Config.Processor.BatchSize, s.Config.Processor.Window, s.Config.Processor.ProcessingInterval)
	return nil
}

// -----------------------------------------------------------------------------

// Stop cancels every task, waits for them (an in-flight batch completes) and
// disconnects the publisher. Calling it on a stopped supervisor is a no-op.
func (s *StreamSupervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.Logger.Info("%s : stopping pipeline", s.Name)

	s.cancel()
	s.wg.Wait()
	s.running = false

	if s.Publisher != nil {
		s.Logger.Info("%s : disconnecting publisher", s.Name)
		if err := s.Publisher.Disconnect(); err != nil {
			s.Logger.Error("%s : failed to disconnect publisher: %v", s.Name, err)
		}
	}

	s.Logger.Info("%s : pipeline stopped, %d ticks left unprocessed", s.Name, s.Queue.Len())
	return nil
}

// -----------------------------------------------------------------------------
// IStreamController Implementation
// -----------------------------------------------------------------------------

// GetStatus returns the runtime status of the pipeline
func (s *StreamSupervisor) GetStatus() *models.MStreamStatus {
	status := s.Source.GetStatus()
	status.QueueDepth = s.Queue.Len()
	status.QueueCapacity = s.Queue.Capacity()
	status.Results = s.Processor.ResultCount()
	status.DecodeErrors = s.Factory.DecodeErrors()
	status.DroppedTicks = s.Processor.Dropped()
	return status
}

// -----------------------------------------------------------------------------

// GetProcessedResults returns copies of the most recent results, oldest first
func (s *StreamSupervisor) GetProcessedResults(limit int) []models.MProcessedResult {
	return s.Processor.Results(limit)
}

// -----------------------------------------------------------------------------

// FlushNow processes up to one batch from whatever is buffered
func (s *StreamSupervisor) FlushNow(ctx context.Context) *models.MProcessedResult {
	s.Logger.Info("%s : manual flush requested (%d ticks buffered)", s.Name, s.Queue.Len())
	return s.Processor.ProcessBatch(ctx)
}

// -----------------------------------------------------------------------------

// Resubscribe replays the subscription on the live connection, e.g. after the
// provider silently dropped it. It fails when no connection is up.
func (s *StreamSupervisor) Resubscribe() error {
	s.Logger.Info("%s : resubscribe requested for %s", s.Name, s.Source.GetName())
	return s.Source.Resubscribe()
}

var _ interfaces.IStreamController = (*StreamSupervisor)(nil)
