package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"stream-processor/src/config"
	"stream-processor/src/logger"
)

// -----------------------------------------------------------------------------

// RESTService handles the HTTP server lifecycle
type RESTService struct {
	server   *http.Server
	listener net.Listener
	logger   *logger.Logger
}

// -----------------------------------------------------------------------------

// NewRESTService listens on the configured address and serves handler
func NewRESTService(config *config.Config, logger *logger.Logger, handler http.Handler) (*RESTService, error) {
	address := fmt.Sprintf("%s:%d", config.REST.Host, config.REST.Port)

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	return &RESTService{
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		logger:   logger,
	}, nil
}

// -----------------------------------------------------------------------------

// Start serves in the background and returns immediately
func (s *RESTService) Start() error {
	s.logger.Info("starting REST service on %s", s.listener.Addr().String())
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("REST server failed: %v", err)
		}
	}()
	return nil
}

// -----------------------------------------------------------------------------

// Stop shuts the server down, waiting for in-flight requests until ctx expires
func (s *RESTService) Stop(ctx context.Context) error {
	s.logger.Info("stopping REST service...")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("REST shutdown: %w", err)
	}
	s.logger.Info("REST service stopped")
	return nil
}

// -----------------------------------------------------------------------------

// Addr returns the listening address
func (s *RESTService) Addr() net.Addr {
	return s.listener.Addr()
}
