package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// UnaryMethod builds the method description of a hand written service. S is the interface the
// registered implementation satisfies.
func UnaryMethod[S any, Req any, Resp any](
	serviceName, methodName string,
	call func(srv S, ctx context.Context, req *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: methodName,
		Handler: func(
			srv interface{},
			ctx context.Context,
			dec func(interface{}) error,
			interceptor grpc.UnaryServerInterceptor,
		) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(serviceName, methodName),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the gRPC method path of a service method.
func FullMethod(serviceName, methodName string) string {
	return "/" + serviceName + "/" + methodName
}

// Invoke performs a unary call encoded with the CBOR codec.
func Invoke[Resp any](
	ctx context.Context,
	conn grpc.ClientConnInterface,
	serviceName, methodName string,
	req interface{},
	opts ...grpc.CallOption,
) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := conn.Invoke(ctx, FullMethod(serviceName, methodName), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
