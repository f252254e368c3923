package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "wings.v1.Records"

// RecordsServer is the server API for the Records service. Requests and
// responses are google.protobuf.Struct and google.protobuf.Value messages.
type RecordsServer interface {
	Find(context.Context, *structpb.Struct) (*structpb.Value, error)
	Get(context.Context, *structpb.Struct) (*structpb.Value, error)
	Create(context.Context, *structpb.Struct) (*structpb.Value, error)
	Patch(context.Context, *structpb.Struct) (*structpb.Value, error)
	PatchMany(context.Context, *structpb.Struct) (*structpb.Value, error)
	Remove(context.Context, *structpb.Struct) (*structpb.Value, error)
	RemoveMany(context.Context, *structpb.Struct) (*structpb.Value, error)
	RemoveAll(context.Context, *structpb.Struct) (*structpb.Value, error)
}

type method func(RecordsServer, context.Context, *structpb.Struct) (*structpb.Value, error)

func unary(name string, call method) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RecordsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(RecordsServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is the grpc.ServiceDesc for the Records service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Find", RecordsServer.Find),
		unary("Get", RecordsServer.Get),
		unary("Create", RecordsServer.Create),
		unary("Patch", RecordsServer.Patch),
		unary("PatchMany", RecordsServer.PatchMany),
		unary("Remove", RecordsServer.Remove),
		unary("RemoveMany", RecordsServer.RemoveMany),
		unary("RemoveAll", RecordsServer.RemoveAll),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wings/v1/records.proto",
}

// RegisterRecordsServer registers srv on s.
func RegisterRecordsServer(s grpc.ServiceRegistrar, srv RecordsServer) {
	s.RegisterService(&ServiceDesc, srv)
}
