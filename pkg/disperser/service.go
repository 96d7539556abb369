package disperser

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name of the disperser.
const ServiceName = "disperser.Disperser"

const (
	methodDisperseBlob  = "/" + ServiceName + "/DisperseBlob"
	methodGetBlobStatus = "/" + ServiceName + "/GetBlobStatus"
	methodRetrieveBlob  = "/" + ServiceName + "/RetrieveBlob"
)

// disperserServer is the server API of the disperser service.
//
// The messages are encoded by hand with protowire, so this package needs no
// protoc step. Proto definition: disperser/disperser.proto (EigenDA v1).
type disperserServer interface {
	DisperseBlob(context.Context, *disperseBlobRequest) (*disperseBlobReply, error)
	GetBlobStatus(context.Context, *blobStatusRequest) (*blobStatusReply, error)
	RetrieveBlob(context.Context, *retrieveBlobRequest) (*retrieveBlobReply, error)
}

type unimplementedDisperserServer struct{}

func (unimplementedDisperserServer) DisperseBlob(context.Context, *disperseBlobRequest) (*disperseBlobReply, error) {
	return nil, status.Error(codes.Unimplemented, "method DisperseBlob not implemented")
}
func (unimplementedDisperserServer) GetBlobStatus(context.Context, *blobStatusRequest) (*blobStatusReply, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBlobStatus not implemented")
}
func (unimplementedDisperserServer) RetrieveBlob(context.Context, *retrieveBlobRequest) (*retrieveBlobReply, error) {
	return nil, status.Error(codes.Unimplemented, "method RetrieveBlob not implemented")
}

type disperserClient struct{ cc grpc.ClientConnInterface }

func (c *disperserClient) DisperseBlob(ctx context.Context, in *disperseBlobRequest, opts ...grpc.CallOption) (*disperseBlobReply, error) {
	out := new(disperseBlobReply)
	if err := c.cc.Invoke(ctx, methodDisperseBlob, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *disperserClient) GetBlobStatus(ctx context.Context, in *blobStatusRequest, opts ...grpc.CallOption) (*blobStatusReply, error) {
	out := new(blobStatusReply)
	if err := c.cc.Invoke(ctx, methodGetBlobStatus, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *disperserClient) RetrieveBlob(ctx context.Context, in *retrieveBlobRequest, opts ...grpc.CallOption) (*retrieveBlobReply, error) {
	out := new(retrieveBlobReply)
	if err := c.cc.Invoke(ctx, methodRetrieveBlob, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Disperser_DisperseBlob_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(disperseBlobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(disperserServer).DisperseBlob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDisperseBlob}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(disperserServer).DisperseBlob(ctx, req.(*disperseBlobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Disperser_GetBlobStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(blobStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(disperserServer).GetBlobStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetBlobStatus}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(disperserServer).GetBlobStatus(ctx, req.(*blobStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Disperser_RetrieveBlob_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(retrieveBlobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(disperserServer).RetrieveBlob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRetrieveBlob}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(disperserServer).RetrieveBlob(ctx, req.(*retrieveBlobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// serviceDesc is the grpc.ServiceDesc for the disperser service.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*disperserServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DisperseBlob", Handler: _Disperser_DisperseBlob_Handler},
		{MethodName: "GetBlobStatus", Handler: _Disperser_GetBlobStatus_Handler},
		{MethodName: "RetrieveBlob", Handler: _Disperser_RetrieveBlob_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "disperser/disperser.proto",
}
