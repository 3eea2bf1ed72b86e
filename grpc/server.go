package grpc

import (
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"

	"github.com/mosim-go/mmuadapter/logging"
)

// NewServer returns a gRPC server whose unary calls run through the timeout, logging and
// panic-recovery interceptors. Extra interceptors run after those.
func NewServer(logger logging.Logger, extra ...grpc.UnaryServerInterceptor) *grpc.Server {
	unaryInterceptors := make([]grpc.UnaryServerInterceptor, 0, 3+len(extra))
	unaryInterceptors = append(unaryInterceptors,
		EnsureTimeoutUnaryServerInterceptor,
		LoggingUnaryServerInterceptor(logger),
		RecoveryUnaryServerInterceptor(logger),
	)
	unaryInterceptors = append(unaryInterceptors, extra...)

	return grpc.NewServer(
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(unaryInterceptors...)),
	)
}
