package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "mirador.anomaly.v1.AnomalyReporter"

// Full method names, as seen by interceptors and clients.
const (
	DetectMethod      = "/" + ServiceName + "/Detect"
	HealthCheckMethod = "/" + ServiceName + "/HealthCheck"
)

// AnomalyReporterServer is the server API for the AnomalyReporter service.
// Payloads are well-known Struct messages so the service needs no generated stubs.
type AnomalyReporterServer interface {
	Detect(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HealthCheck(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterAnomalyReporterServer registers srv with the gRPC registrar.
func RegisterAnomalyReporterServer(s grpc.ServiceRegistrar, srv AnomalyReporterServer) {
	s.RegisterService(&AnomalyReporterServiceDesc, srv)
}

// AnomalyReporterServiceDesc describes the AnomalyReporter service.
var AnomalyReporterServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnomalyReporterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Detect", Handler: detectHandler},
		{MethodName: "HealthCheck", Handler: healthCheckHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mirador/anomaly/v1/anomaly.proto",
}

func detectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnomalyReporterServer).Detect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DetectMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnomalyReporterServer).Detect(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func healthCheckHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnomalyReporterServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: HealthCheckMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnomalyReporterServer).HealthCheck(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// AnomalyReporterClient is the client API for the AnomalyReporter service.
type AnomalyReporterClient interface {
	Detect(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	HealthCheck(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type anomalyReporterClient struct {
	cc grpc.ClientConnInterface
}

// NewAnomalyReporterClient wraps a client connection.
func NewAnomalyReporterClient(cc grpc.ClientConnInterface) AnomalyReporterClient {
	return &anomalyReporterClient{cc: cc}
}

func (c *anomalyReporterClient) Detect(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DetectMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *anomalyReporterClient) HealthCheck(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, HealthCheckMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
