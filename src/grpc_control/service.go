package grpc_control

import (
	"context"
	"encoding/json"
	"fmt"

	"stream-processor/src/interfaces"
	"stream-processor/src/logger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// -----------------------------------------------------------------------------
// ControlService Implementation
// -----------------------------------------------------------------------------

type ControlServiceImpl struct {
	Name       string
	controller interfaces.IStreamController
	logger     *logger.Logger
}

// -----------------------------------------------------------------------------

// NewControlService creates a new ControlServiceImpl instance
func NewControlService(logger *logger.Logger, controller interfaces.IStreamController) *ControlServiceImpl {
	return &ControlServiceImpl{
		Name:       "GRPCControlService",
		controller: controller,
		logger:     logger,
	}
}

// -----------------------------------------------------------------------------

// GetStatus implements the gRPC GetStatus method
func (s *ControlServiceImpl) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.logger.Debug("%s : received GetStatus request", s.Name)

	out, err := toStruct(s.controller.GetStatus())
	if err != nil {
		s.logger.Error("%s : failed to encode status: %v", s.Name, err)
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// GetProcessedResults implements the gRPC GetProcessedResults method
func (s *ControlServiceImpl) GetProcessedResults(ctx context.Context, req *wrapperspb.Int32Value) (*structpb.Struct, error) {
	limit := int(req.GetValue())
	s.logger.Debug("%s : received GetProcessedResults request (limit %d)", s.Name, limit)

	if limit < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "limit must be >= 0 (got %d)", limit)
	}

	results := s.controller.GetProcessedResults(limit)
	out, err := toStruct(map[string]any{
		"count":   len(results),
		"results": results,
	})
	if err != nil {
		s.logger.Error("%s : failed to encode results: %v", s.Name, err)
		return nil, status.Errorf(codes.Internal, "encode results: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// FlushBatch implements the gRPC FlushBatch method
func (s *ControlServiceImpl) FlushBatch(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.logger.Info("%s : received FlushBatch request", s.Name)

	result := s.controller.FlushNow(ctx)
	if err := ctx.Err(); err != nil && result == nil {
		return nil, status.FromContextError(err).Err()
	}

	payload := map[string]any{"flushed": result != nil}
	if result != nil {
		payload["result"] = result
	}
	out, err := toStruct(payload)
	if err != nil {
		s.logger.Error("%s : failed to encode flush result: %v", s.Name, err)
		return nil, status.Errorf(codes.Internal, "encode flush result: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// Resubscribe implements the gRPC Resubscribe method
func (s *ControlServiceImpl) Resubscribe(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.logger.Info("%s : received Resubscribe request", s.Name)

	if err := s.controller.Resubscribe(); err != nil {
		s.logger.Warning("%s : resubscribe failed: %v", s.Name, err)
		return nil, status.Errorf(codes.FailedPrecondition, "resubscribe: %v", err)
	}
	return structpb.NewStruct(map[string]any{"resubscribed": true})
}

// -----------------------------------------------------------------------------

// toStruct converts any JSON-encodable value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("value is not a JSON object: %w", err)
	}
	return structpb.NewStruct(fields)
}

var _ ControlServiceServer = (*ControlServiceImpl)(nil)
