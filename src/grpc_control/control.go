package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The control service is described by hand on top of protobuf well-known types,
// so no generated code is needed.
const (
	ControlServiceName = "streamprocessor.control.v1.ControlService"

	GetStatusFullMethod           = "/" + ControlServiceName + "/GetStatus"
	GetProcessedResultsFullMethod = "/" + ControlServiceName + "/GetProcessedResults"
	FlushBatchFullMethod          = "/" + ControlServiceName + "/FlushBatch"
	ResubscribeFullMethod         = "/" + ControlServiceName + "/Resubscribe"
)

// -----------------------------------------------------------------------------
// Server side
// -----------------------------------------------------------------------------

// ControlServiceServer is the server API of the control service.
type ControlServiceServer interface {
	// GetStatus returns the pipeline status as a struct
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// GetProcessedResults returns {"results": [...]}, the most recent limit results (all when 0)
	GetProcessedResults(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	// FlushBatch processes one batch now and returns {"flushed": bool, "result": {...}}
	FlushBatch(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Resubscribe replays the upstream subscription and returns {"resubscribed": true}
	Resubscribe(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

// RegisterControlServiceServer registers srv on s.
func RegisterControlServiceServer(s grpc.ServiceRegistrar, srv ControlServiceServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}

// -----------------------------------------------------------------------------

var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ControlServiceName,
	HandlerType: (*ControlServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "GetProcessedResults", Handler: getProcessedResultsHandler},
		{MethodName: "FlushBatch", Handler: flushBatchHandler},
		{MethodName: "Resubscribe", Handler: resubscribeHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// -----------------------------------------------------------------------------

func getStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServiceServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetStatusFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServiceServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getProcessedResultsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int32Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServiceServer).GetProcessedResults(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetProcessedResultsFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServiceServer).GetProcessedResults(ctx, req.(*wrapperspb.Int32Value))
	}
	return interceptor(ctx, in, info, handler)
}

func flushBatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServiceServer).FlushBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlushBatchFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServiceServer).FlushBatch(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func resubscribeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServiceServer).Resubscribe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ResubscribeFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServiceServer).Resubscribe(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------
// Client side
// -----------------------------------------------------------------------------

// ControlServiceClient calls the control service over a client connection.
type ControlServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewControlServiceClient creates a client on cc.
func NewControlServiceClient(cc grpc.ClientConnInterface) *ControlServiceClient {
	return &ControlServiceClient{cc: cc}
}

func (c *ControlServiceClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStatusFullMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlServiceClient) GetProcessedResults(ctx context.Context, limit int32, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetProcessedResultsFullMethod, wrapperspb.Int32(limit), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlServiceClient) FlushBatch(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FlushBatchFullMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlServiceClient) Resubscribe(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ResubscribeFullMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
