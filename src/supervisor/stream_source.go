package supervisor

import (
	"context"
	"fmt"

	"stream-processor/src/interfaces"
	"stream-processor/src/logger"
	"stream-processor/src/models"
)

// -----------------------------------------------------------------------------

// StreamSource holds the decoder and connection client of the upstream feed
type StreamSource struct {
	Name    string
	Logger  *logger.Logger
	Decoder interfaces.IDecoder
	Client  interfaces.IConnectionClient
}

// -----------------------------------------------------------------------------

// GetName returns the source name
func (s *StreamSource) GetName() string {
	return s.Name
}

// -----------------------------------------------------------------------------

// Run keeps the connection client alive until ctx is cancelled.
func (s *StreamSource) Run(ctx context.Context) error {
	s.Logger.Info("%s : starting connection client for %s", s.Name, s.Decoder.GetName())
	if err := s.Client.Run(ctx); err != nil {
		return fmt.Errorf("connection client %s failed: %w", s.Name, err)
	}
	s.Logger.Info("%s : connection client stopped", s.Name)
	return nil
}

// -----------------------------------------------------------------------------

// Resubscribe sends the subscription messages again on the live connection.
func (s *StreamSource) Resubscribe() error {
	messages, err := s.Decoder.SubscribeMessages()
	if err != nil {
		return fmt.Errorf("failed to build subscription message for %s: %w", s.Name, err)
	}
	for _, msg := range messages {
		if err := s.Client.SendMessage(msg); err != nil {
			return fmt.Errorf("failed to send subscription message for %s: %w", s.Name, err)
		}
	}
	s.Logger.Info("%s : subscription sent for %v", s.Name, s.Decoder.GetSymbols())
	return nil
}

// -----------------------------------------------------------------------------

// GetStatus returns the connection part of the stream status
func (s *StreamSource) GetStatus() *models.MStreamStatus {
	// decoder fields first, then the connection client view
	return &models.MStreamStatus{
		SourceName:    s.Name,
		Provider:      s.Decoder.GetName(),
		Endpoint:      s.Decoder.GetEndPoint(),
		Symbols:       s.Decoder.GetSymbols(),
		TransportType: s.Client.GetType(),
		Running:       s.Client.IsRunning(),
		State:         s.Client.GetState(),
		Reconnects:    s.Client.GetReconnects(),
	}
}
