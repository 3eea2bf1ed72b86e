package register

import (
	"context"
	"net"
	"testing"

	"go.uber.org/atomic"
	"go.viam.com/test"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	rgrpc "github.com/mosim-go/mmuadapter/grpc"
	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
)

type fakeRegister struct {
	registered atomic.String
}

func (f *fakeRegister) RegisterAdapter(ctx context.Context, req *AdapterRequest) (*mmi.BoolResponse, error) {
	f.registered.Store(req.Description.ID)
	resp := mmi.Success()
	return &resp, nil
}

func (f *fakeRegister) UnregisterAdapter(ctx context.Context, req *AdapterRequest) (*mmi.BoolResponse, error) {
	if f.registered.Load() != req.Description.ID {
		resp := mmi.Failure("unknown adapter " + req.Description.ID)
		return &resp, nil
	}
	f.registered.Store("")
	resp := mmi.Success()
	return &resp, nil
}

func (f *fakeRegister) GetRegisteredServices(ctx context.Context, req *ServicesRequest) (*ServicesResponse, error) {
	return &ServicesResponse{Services: []mmi.ServiceDescription{
		{Name: "ikService", ID: "ik", Addresses: []mmi.IPAddress{{Address: "127.0.0.1", Port: 9000}}},
		{Name: "pathPlanning", ID: req.SessionID},
	}}, nil
}

func TestClient(t *testing.T) {
	logger := logging.NewTestLogger(t)
	listener := bufconn.Listen(1 << 20)
	server := rgrpc.NewServer(logger)
	fake := &fakeRegister{}
	server.RegisterService(&ServiceDesc, fake)
	go server.Serve(listener)
	defer server.Stop()

	conn, err := rgrpc.Dial(context.Background(), "passthrough:///register", logger,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
	)
	test.That(t, err, test.ShouldBeNil)
	defer conn.Close()

	client := NewClientFromConn(conn)
	description := mmi.AdapterDescription{Name: "GoAdapter", ID: "adapter-1", Language: "GO"}

	resp, err := client.RegisterAdapter(context.Background(), description)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Successful, test.ShouldBeTrue)
	test.That(t, fake.registered.Load(), test.ShouldEqual, "adapter-1")

	services, err := client.GetRegisteredServices(context.Background(), "S:A")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, services, test.ShouldHaveLength, 2)
	test.That(t, services[0].Addresses[0].Port, test.ShouldEqual, 9000)
	test.That(t, services[1].ID, test.ShouldEqual, "S:A")

	resp, err = client.UnregisterAdapter(context.Background(), description)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Successful, test.ShouldBeTrue)

	resp, err = client.UnregisterAdapter(context.Background(), description)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Successful, test.ShouldBeFalse)
	test.That(t, resp.LogData, test.ShouldResemble, []string{"unknown adapter adapter-1"})

	test.That(t, client.Close(), test.ShouldBeNil)
}
