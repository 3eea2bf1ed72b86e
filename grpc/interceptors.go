package grpc

import (
	"context"
	"time"

	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mosim-go/mmuadapter/logging"
)

// DefaultMethodTimeout applies to inbound and outbound calls whose context has no deadline.
var DefaultMethodTimeout = 10 * time.Minute

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultMethodTimeout)
}

// EnsureTimeoutUnaryServerInterceptor bounds handlers by DefaultMethodTimeout. It must come first
// in the chain.
func EnsureTimeoutUnaryServerInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	return handler(ctx, req)
}

// EnsureTimeoutUnaryClientInterceptor is the client side of EnsureTimeoutUnaryServerInterceptor.
func EnsureTimeoutUnaryClientInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	return invoker(ctx, method, req, reply, cc, opts...)
}

// LoggingUnaryServerInterceptor logs every inbound call at debug level and failed calls at warn
// level.
func LoggingUnaryServerInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warnw("call failed", "method", info.FullMethod, "code", status.Code(err).String(), "error", err)
			return resp, err
		}
		logger.Debugw("call served", "method", info.FullMethod, "duration", time.Since(start).String())
		return resp, nil
	}
}

// RecoveryUnaryServerInterceptor turns a panic in a handler into an Internal error so a
// misbehaving call never takes down the server.
func RecoveryUnaryServerInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return grpc_recovery.UnaryServerInterceptor(grpc_recovery.WithRecoveryHandlerContext(
		func(ctx context.Context, p interface{}) error {
			logger.Errorw("recovered from panic in handler", "panic", p)
			return status.Errorf(codes.Internal, "panic: %v", p)
		},
	))
}
