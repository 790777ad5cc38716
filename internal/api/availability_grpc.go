package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// AvailabilityServiceName is the fully qualified gRPC service name. Requests
// and responses are google.protobuf.Struct messages keyed like the JSON API.
const AvailabilityServiceName = "seatbooking.availability.v1.AvailabilityService"

const (
	methodCheckAvailability = "CheckAvailability"
	methodListTimeSlots     = "ListTimeSlots"
	methodListOccupiedSeats = "ListOccupiedSeats"
)

type AvailabilityServer interface {
	CheckAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTimeSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOccupiedSeats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&availabilityServiceDesc, srv)
}

var availabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: AvailabilityServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodCheckAvailability, Handler: unaryHandler(methodCheckAvailability, AvailabilityServer.CheckAvailability)},
		{MethodName: methodListTimeSlots, Handler: unaryHandler(methodListTimeSlots, AvailabilityServer.ListTimeSlots)},
		{MethodName: methodListOccupiedSeats, Handler: unaryHandler(methodListOccupiedSeats, AvailabilityServer.ListOccupiedSeats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "seatbooking/availability/v1/availability.proto",
}

type unaryMethod func(AvailabilityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + AvailabilityServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AvailabilityServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(AvailabilityServer), ctx, req.(*structpb.Struct))
		})
	}
}

// AvailabilityClient calls the availability service over an existing connection.
type AvailabilityClient struct {
	cc grpc.ClientConnInterface
}

func NewAvailabilityClient(cc grpc.ClientConnInterface) *AvailabilityClient {
	return &AvailabilityClient{cc: cc}
}

func (c *AvailabilityClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+AvailabilityServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AvailabilityClient) CheckAvailability(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodCheckAvailability, in, opts...)
}

func (c *AvailabilityClient) ListTimeSlots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListTimeSlots, in, opts...)
}

func (c *AvailabilityClient) ListOccupiedSeats(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListOccupiedSeats, in, opts...)
}
