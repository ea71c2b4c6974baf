package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stream-processor/src/config"
	"stream-processor/src/grpc_control"
	"stream-processor/src/logger"
	"stream-processor/src/metrics"
	"stream-processor/src/rest"
	"stream-processor/src/supervisor"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config, config.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, config, appLogger)
	stop()

	if err != nil {
		appLogger.Critical("%s : %v", config.Name, err)
	}
	_ = appLogger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

// run wires the pipeline and the control planes, then blocks until ctx is done.
// Anything already started is shut down before a startup error is returned.
func run(ctx context.Context, config *config.Config, appLogger *logger.Logger) error {
	// Metrics registry, process and Go runtime collectors included
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(registry)

	// Create the pipeline from config
	pipeline, err := supervisor.NewStreamSupervisor(config, appLogger, appMetrics)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	var (
		controlService *grpc_control.GRPCService
		restService    *rest.RESTService
	)
	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if restService != nil {
			if err := restService.Stop(shutdownCtx); err != nil {
				appLogger.Error("REST shutdown: %v", err)
			}
		}
		if controlService != nil {
			if err := controlService.Stop(shutdownCtx); err != nil {
				appLogger.Error("gRPC shutdown: %v", err)
			}
		}
		pipeline.Stop()
	}

	// Create control service
	if config.GRPC.Enabled {
		svc, err := grpc_control.NewGRPCService(config, appLogger.Named("grpc"), pipeline)
		if err != nil {
			return fmt.Errorf("failed to create control service: %w", err)
		}
		if err := svc.Start(); err != nil {
			return fmt.Errorf("control server error: %w", err)
		}
		controlService = svc
	}

	// Create REST plane
	if config.REST.Enabled {
		handler := rest.NewAPIHandler(appLogger.Named("rest"), pipeline, registry)
		svc, err := rest.NewRESTService(config, appLogger.Named("rest"), handler)
		if err != nil {
			shutdown()
			return fmt.Errorf("failed to create REST service: %w", err)
		}
		if err := svc.Start(); err != nil {
			shutdown()
			return fmt.Errorf("REST server error: %w", err)
		}
		restService = svc
	}

	// Start pipeline
	if err := pipeline.Start(ctx); err != nil {
		shutdown()
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	appLogger.Info("%s running. REST: %t (%s:%d), gRPC: %t (%s:%d)", config.Name,
		config.REST.Enabled, config.REST.Host, config.REST.Port,
		config.GRPC.Enabled, config.GRPC.Host, config.GRPC.Port)
	appLogger.Info("Press Ctrl+C to stop.")

	// Wait for shutdown signal
	<-ctx.Done()
	appLogger.Info("shutting down...")
	shutdown()

	appLogger.Info("shutdown complete")
	return nil
}
