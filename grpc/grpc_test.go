package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
)

const echoServiceName = "test.Echo"

type echoServer interface {
	Echo(ctx context.Context, req *mmi.Instruction) (*mmi.Instruction, error)
}

type echo struct{}

func (echo) Echo(ctx context.Context, req *mmi.Instruction) (*mmi.Instruction, error) {
	switch req.Name {
	case "panic":
		panic("echo exploded")
	case "fail":
		return nil, errors.New("echo failed")
	}
	req.Properties = map[string]string{"echoed": "true"}
	return req, nil
}

var echoServiceDesc = grpc.ServiceDesc{
	ServiceName: echoServiceName,
	HandlerType: (*echoServer)(nil),
	Methods: []grpc.MethodDesc{
		UnaryMethod(echoServiceName, "Echo", echoServer.Echo),
	},
}

func TestCodec(t *testing.T) {
	var codec Codec
	test.That(t, codec.Name(), test.ShouldEqual, "cbor")

	instruction := mmi.Instruction{
		ID:          "i1",
		Name:        "walk",
		Properties:  map[string]string{"b": "2", "a": "1"},
		Constraints: []mmi.Constraint{{ID: "c1"}},
	}
	first, err := codec.Marshal(instruction)
	test.That(t, err, test.ShouldBeNil)
	second, err := codec.Marshal(instruction)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first, test.ShouldResemble, second)

	var decoded mmi.Instruction
	test.That(t, codec.Unmarshal(first, &decoded), test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, instruction)
}

func TestServerRoundTrip(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)

	listener := bufconn.Listen(1 << 20)
	server := NewServer(logger)
	server.RegisterService(&echoServiceDesc, echo{})
	go server.Serve(listener)
	defer server.Stop()

	conn, err := Dial(context.Background(), "passthrough:///bufnet", logger,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	test.That(t, err, test.ShouldBeNil)
	defer conn.Close()

	resp, err := Invoke[mmi.Instruction](context.Background(), conn, echoServiceName, "Echo", &mmi.Instruction{ID: "i1"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.ID, test.ShouldEqual, "i1")
	test.That(t, resp.Properties["echoed"], test.ShouldEqual, "true")

	_, err = Invoke[mmi.Instruction](context.Background(), conn, echoServiceName, "Echo", &mmi.Instruction{Name: "fail"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, status.Convert(err).Message(), test.ShouldEqual, "echo failed")

	_, err = Invoke[mmi.Instruction](context.Background(), conn, echoServiceName, "Echo", &mmi.Instruction{Name: "panic"})
	test.That(t, status.Code(err), test.ShouldEqual, codes.Internal)
	test.That(t, logs.FilterMessage("recovered from panic in handler").Len(), test.ShouldEqual, 1)

	// The server survives the panic.
	resp, err = Invoke[mmi.Instruction](context.Background(), conn, echoServiceName, "Echo", &mmi.Instruction{ID: "i2"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.ID, test.ShouldEqual, "i2")
}
