package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "form106.v1.Ingestion"

const (
	ingestMethod = "/" + ServiceName + "/Ingest"
	submitMethod = "/" + ServiceName + "/Submit"
	exportMethod = "/" + ServiceName + "/Export"
)

// IngestionService is the server API. Requests and responses are
// google.protobuf.Struct messages so no generated code is needed.
//
//	Ingest  {path, password?}  -> ingestion result
//	Submit  {path}             -> {documentId, deduplicated, queued, contentHash}
//	Export  {}                 -> {xlsx (base64), bytes}
type IngestionService interface {
	Ingest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Export(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type structCall func(IngestionService, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(IngestionService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(IngestionService), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// IngestionServiceDesc describes the service for grpc.Server.RegisterService.
var IngestionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IngestionService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ingest", Handler: unaryHandler(ingestMethod, IngestionService.Ingest)},
		{MethodName: "Submit", Handler: unaryHandler(submitMethod, IngestionService.Submit)},
		{MethodName: "Export", Handler: unaryHandler(exportMethod, IngestionService.Export)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "form106/v1/ingestion.proto",
}

func RegisterIngestionServer(s grpc.ServiceRegistrar, srv IngestionService) {
	s.RegisterService(&IngestionServiceDesc, srv)
}

// IngestionClient calls IngestionService over a client connection.
type IngestionClient struct {
	cc grpc.ClientConnInterface
}

func NewIngestionClient(cc grpc.ClientConnInterface) *IngestionClient {
	return &IngestionClient{cc: cc}
}

func (c *IngestionClient) Ingest(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ingestMethod, req, opts...)
}

func (c *IngestionClient) Submit(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, submitMethod, req, opts...)
}

func (c *IngestionClient) Export(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, exportMethod, req, opts...)
}

func (c *IngestionClient) invoke(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

var _ IngestionService = (*IngestionServer)(nil)
