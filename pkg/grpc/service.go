package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The usage service speaks google.protobuf.Struct both ways, so the descriptor below
// is all the wiring a server or client needs.

const ServiceName = "batteryrental.v1.UsageService"

const (
	MethodCurrentUsage    = "/" + ServiceName + "/CurrentUsage"
	MethodToggleDischarge = "/" + ServiceName + "/ToggleDischarge"
	MethodSetCharge       = "/" + ServiceName + "/SetCharge"
	MethodActivateOrder   = "/" + ServiceName + "/ActivateOrder"
	MethodCompleteOrder   = "/" + ServiceName + "/CompleteOrder"
)

type UsageServiceServer interface {
	CurrentUsage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ToggleDischarge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetCharge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ActivateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type methodFunc func(UsageServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler has the shape grpc.MethodDesc.Handler expects.
func unaryHandler(fullMethod string, call methodFunc) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(UsageServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(UsageServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var UsageServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UsageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CurrentUsage", Handler: unaryHandler(MethodCurrentUsage, UsageServiceServer.CurrentUsage)},
		{MethodName: "ToggleDischarge", Handler: unaryHandler(MethodToggleDischarge, UsageServiceServer.ToggleDischarge)},
		{MethodName: "SetCharge", Handler: unaryHandler(MethodSetCharge, UsageServiceServer.SetCharge)},
		{MethodName: "ActivateOrder", Handler: unaryHandler(MethodActivateOrder, UsageServiceServer.ActivateOrder)},
		{MethodName: "CompleteOrder", Handler: unaryHandler(MethodCompleteOrder, UsageServiceServer.CompleteOrder)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "batteryrental/v1/usage.proto",
}

func RegisterUsageServiceServer(s grpc.ServiceRegistrar, srv UsageServiceServer) {
	s.RegisterService(&UsageServiceDesc, srv)
}

type UsageServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewUsageServiceClient(cc grpc.ClientConnInterface) *UsageServiceClient {
	return &UsageServiceClient{cc: cc}
}

func (c *UsageServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *UsageServiceClient) CurrentUsage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCurrentUsage, in, opts...)
}

func (c *UsageServiceClient) ToggleDischarge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodToggleDischarge, in, opts...)
}

func (c *UsageServiceClient) SetCharge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetCharge, in, opts...)
}

func (c *UsageServiceClient) ActivateOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodActivateOrder, in, opts...)
}

func (c *UsageServiceClient) CompleteOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCompleteOrder, in, opts...)
}
