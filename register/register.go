// Package register talks to the register, the orchestrating service adapters announce
// themselves to and that brokers auxiliary services.
package register

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"

	rgrpc "github.com/mosim-go/mmuadapter/grpc"
	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
)

// ServiceName is the gRPC service name of the register.
const ServiceName = "mmi.MMIRegisterService"

type (
	// AdapterRequest carries the description of the calling adapter.
	AdapterRequest struct {
		Description mmi.AdapterDescription `json:"description"`
	}

	// ServicesRequest asks for the services available to a session.
	ServicesRequest struct {
		SessionID string `json:"sessionId"`
	}

	// ServicesResponse lists services.
	ServicesResponse struct {
		Services []mmi.ServiceDescription `json:"services"`
	}
)

// Client is the part of the register used by the adapter.
type Client interface {
	RegisterAdapter(ctx context.Context, description mmi.AdapterDescription) (mmi.BoolResponse, error)
	UnregisterAdapter(ctx context.Context, description mmi.AdapterDescription) (mmi.BoolResponse, error)
	GetRegisteredServices(ctx context.Context, sessionID string) ([]mmi.ServiceDescription, error)
}

// Server is implemented by register services.
type Server interface {
	RegisterAdapter(ctx context.Context, req *AdapterRequest) (*mmi.BoolResponse, error)
	UnregisterAdapter(ctx context.Context, req *AdapterRequest) (*mmi.BoolResponse, error)
	GetRegisteredServices(ctx context.Context, req *ServicesRequest) (*ServicesResponse, error)
}

// ServiceDesc describes the register service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		rgrpc.UnaryMethod(ServiceName, "RegisterAdapter", Server.RegisterAdapter),
		rgrpc.UnaryMethod(ServiceName, "UnregisterAdapter", Server.UnregisterAdapter),
		rgrpc.UnaryMethod(ServiceName, "GetRegisteredServices", Server.GetRegisteredServices),
	},
	Metadata: "register.go",
}

// GRPCClient is a Client over a gRPC connection.
type GRPCClient struct {
	conn   grpc.ClientConnInterface
	closer func() error
}

// NewClientFromConn returns a client using an existing connection. Closing the client does not
// close the connection.
func NewClientFromConn(conn grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{conn: conn}
}

// Dial connects to the register at address.
func Dial(ctx context.Context, address string, logger logging.Logger) (*GRPCClient, error) {
	conn, err := rgrpc.Dial(ctx, address, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to register")
	}
	return &GRPCClient{conn: conn, closer: conn.Close}, nil
}

// RegisterAdapter announces the adapter.
func (c *GRPCClient) RegisterAdapter(ctx context.Context, description mmi.AdapterDescription) (mmi.BoolResponse, error) {
	resp, err := rgrpc.Invoke[mmi.BoolResponse](ctx, c.conn, ServiceName, "RegisterAdapter", &AdapterRequest{Description: description})
	if err != nil {
		return mmi.BoolResponse{}, err
	}
	return *resp, nil
}

// UnregisterAdapter withdraws the adapter.
func (c *GRPCClient) UnregisterAdapter(ctx context.Context, description mmi.AdapterDescription) (mmi.BoolResponse, error) {
	resp, err := rgrpc.Invoke[mmi.BoolResponse](ctx, c.conn, ServiceName, "UnregisterAdapter", &AdapterRequest{Description: description})
	if err != nil {
		return mmi.BoolResponse{}, err
	}
	return *resp, nil
}

// GetRegisteredServices lists the services available to the session.
func (c *GRPCClient) GetRegisteredServices(ctx context.Context, sessionID string) ([]mmi.ServiceDescription, error) {
	resp, err := rgrpc.Invoke[ServicesResponse](ctx, c.conn, ServiceName, "GetRegisteredServices", &ServicesRequest{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	return resp.Services, nil
}

// Close closes the connection if the client dialed it.
func (c *GRPCClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
