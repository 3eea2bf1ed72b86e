package grpc

import (
	"context"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_retry "github.com/grpc-ecosystem/go-grpc-middleware/retry"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mosim-go/mmuadapter/logging"
)

// DefaultDialRetries is the number of times a unary call is retried while the remote end is
// unavailable.
const DefaultDialRetries = 3

// Dial creates a client connection to address. Calls are encoded with the CBOR codec, get the
// default timeout when the caller set none, and are retried with exponential backoff while the
// remote end is unavailable. The connection is established lazily by the first call.
func Dial(ctx context.Context, address string, logger logging.Logger, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	retryOpts := []grpc_retry.CallOption{
		grpc_retry.WithMax(DefaultDialRetries),
		grpc_retry.WithBackoff(grpc_retry.BackoffExponential(100 * time.Millisecond)),
		grpc_retry.WithCodes(codes.Unavailable),
	}
	dialOpts := make([]grpc.DialOption, 0, 3+len(opts))
	dialOpts = append(dialOpts,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		grpc.WithUnaryInterceptor(grpc_middleware.ChainUnaryClient(
			EnsureTimeoutUnaryClientInterceptor,
			grpc_retry.UnaryClientInterceptor(retryOpts...),
		)),
	)
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", address)
	}
	logger.Debugw("created client connection", "address", address)
	return conn, nil
}
