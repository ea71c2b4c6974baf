package grpc_control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"stream-processor/src/config"
	"stream-processor/src/interfaces"
	"stream-processor/src/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// -----------------------------------------------------------------------------
// GRPCService handles gRPC server lifecycle
// -----------------------------------------------------------------------------

type GRPCService struct {
	server       *grpc.Server
	healthServer *health.Server
	listener     net.Listener
	logger       *logger.Logger
	controller   interfaces.IStreamController
	running      atomic.Bool
}

// -----------------------------------------------------------------------------

// NewGRPCService creates a new GRPCService listening on the configured address
func NewGRPCService(config *config.Config, logger *logger.Logger, controller interfaces.IStreamController) (*GRPCService, error) {
	address := fmt.Sprintf("%s:%d", config.GRPC.Host, config.GRPC.Port)

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	return NewGRPCServiceWithListener(listener, logger, controller), nil
}

// -----------------------------------------------------------------------------

// NewGRPCServiceWithListener creates a GRPCService serving on an existing listener
func NewGRPCServiceWithListener(listener net.Listener, logger *logger.Logger, controller interfaces.IStreamController) *GRPCService {
	g := &GRPCService{
		listener:     listener,
		logger:       logger,
		controller:   controller,
		healthServer: health.NewServer(),
	}

	serverOptions := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(10 * 1024 * 1024), // 10MB
		grpc.MaxSendMsgSize(10 * 1024 * 1024), // 10MB
		grpc.ChainUnaryInterceptor(g.logUnary),
	}
	g.server = grpc.NewServer(serverOptions...)

	RegisterControlServiceServer(g.server, NewControlService(logger, controller))
	grpc_health_v1.RegisterHealthServer(g.server, g.healthServer)

	return g
}

// -----------------------------------------------------------------------------

// Start serves in the background and returns immediately
func (g *GRPCService) Start() error {
	if !g.running.CompareAndSwap(false, true) {
		return fmt.Errorf("gRPC service already started")
	}
	g.logger.Info("starting gRPC service on %s", g.listener.Addr().String())

	g.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	g.healthServer.SetServingStatus(ControlServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		defer g.running.Store(false)
		if err := g.server.Serve(g.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			g.logger.Error("gRPC server failed: %v", err)
		}
	}()

	return nil
}

// -----------------------------------------------------------------------------

// Stop gracefully stops the gRPC server, forcing it when ctx expires
func (g *GRPCService) Stop(ctx context.Context) error {
	g.logger.Info("stopping gRPC service...")
	g.healthServer.Shutdown()

	stopped := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		g.logger.Warning("gRPC graceful shutdown timeout, forcing stop...")
		g.server.Stop()
	case <-stopped:
	}

	g.logger.Info("gRPC service stopped")
	return nil
}

// -----------------------------------------------------------------------------

// IsRunning returns whether the gRPC server is serving
func (g *GRPCService) IsRunning() bool {
	return g.running.Load()
}

// -----------------------------------------------------------------------------

// Addr returns the listening address
func (g *GRPCService) Addr() net.Addr {
	return g.listener.Addr()
}

// -----------------------------------------------------------------------------

func (g *GRPCService) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		g.logger.Warning("gRPC %s failed after %s: %v", info.FullMethod, time.Since(start), err)
	} else {
		g.logger.Debug("gRPC %s served in %s", info.FullMethod, time.Since(start))
	}
	return resp, err
}
