// Package proto is the wire contract between the field client and the
// document store server. Messages are protobuf well-known types
// (structpb.Struct and emptypb.Empty), so the service descriptor below is
// written by hand instead of generated.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "fieldsync.v1.DocumentStore"

const (
	SignInFullMethodName    = "/" + ServiceName + "/SignIn"
	PingFullMethodName      = "/" + ServiceName + "/Ping"
	UpsertFullMethodName    = "/" + ServiceName + "/Upsert"
	CreateFullMethodName    = "/" + ServiceName + "/Create"
	ReadAllFullMethodName   = "/" + ServiceName + "/ReadAll"
	SubscribeFullMethodName = "/" + ServiceName + "/Subscribe"
)

// DocumentStoreServer is implemented by the server.
type DocumentStoreServer interface {
	SignIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Upsert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReadAll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Subscribe(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// UnimplementedDocumentStoreServer can be embedded to satisfy
// DocumentStoreServer with methods that return codes.Unimplemented.
type UnimplementedDocumentStoreServer struct{}

func (UnimplementedDocumentStoreServer) SignIn(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SignIn not implemented")
}

func (UnimplementedDocumentStoreServer) Ping(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func (UnimplementedDocumentStoreServer) Upsert(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Upsert not implemented")
}

func (UnimplementedDocumentStoreServer) Create(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Create not implemented")
}

func (UnimplementedDocumentStoreServer) ReadAll(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ReadAll not implemented")
}

func (UnimplementedDocumentStoreServer) Subscribe(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Error(codes.Unimplemented, "method Subscribe not implemented")
}

func RegisterDocumentStoreServer(s grpc.ServiceRegistrar, srv DocumentStoreServer) {
	s.RegisterService(&DocumentStore_ServiceDesc, srv)
}

func unaryHandler[Req any](method string, call func(DocumentStoreServer, context.Context, *Req) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DocumentStoreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DocumentStoreServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DocumentStoreServer).Subscribe(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// DocumentStore_ServiceDesc describes the service for grpc.ServiceRegistrar.
var DocumentStore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SignIn", Handler: unaryHandler(SignInFullMethodName, DocumentStoreServer.SignIn)},
		{MethodName: "Ping", Handler: unaryHandler(PingFullMethodName, DocumentStoreServer.Ping)},
		{MethodName: "Upsert", Handler: unaryHandler(UpsertFullMethodName, DocumentStoreServer.Upsert)},
		{MethodName: "Create", Handler: unaryHandler(CreateFullMethodName, DocumentStoreServer.Create)},
		{MethodName: "ReadAll", Handler: unaryHandler(ReadAllFullMethodName, DocumentStoreServer.ReadAll)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "fieldsync/v1/document_store.proto",
}

// DocumentStoreClient is the client API for the service.
type DocumentStoreClient interface {
	SignIn(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Upsert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Create(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ReadAll(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Subscribe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type documentStoreClient struct {
	cc grpc.ClientConnInterface
}

func NewDocumentStoreClient(cc grpc.ClientConnInterface) DocumentStoreClient {
	return &documentStoreClient{cc: cc}
}

func (c *documentStoreClient) invoke(ctx context.Context, method string, in any, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentStoreClient) SignIn(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SignInFullMethodName, in, opts)
}

func (c *documentStoreClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, PingFullMethodName, in, opts)
}

func (c *documentStoreClient) Upsert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, UpsertFullMethodName, in, opts)
}

func (c *documentStoreClient) Create(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CreateFullMethodName, in, opts)
}

func (c *documentStoreClient) ReadAll(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ReadAllFullMethodName, in, opts)
}

func (c *documentStoreClient) Subscribe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &DocumentStore_ServiceDesc.Streams[0], SubscribeFullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
