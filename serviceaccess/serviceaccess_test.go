package serviceaccess

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/test"
	"google.golang.org/grpc"

	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/mmu"
	"github.com/mosim-go/mmuadapter/utils"
)

var _ mmu.ServiceAccess = (*Access)(nil)

type fakeLister struct {
	calls atomic.Int32
	err   error
}

func (f *fakeLister) GetRegisteredServices(ctx context.Context, sessionID string) ([]mmi.ServiceDescription, error) {
	f.calls.Inc()
	if f.err != nil {
		return nil, f.err
	}
	return []mmi.ServiceDescription{
		{Name: "ikService", ID: "ik", Addresses: []mmi.IPAddress{{Address: "10.0.0.1", Port: 9000}}},
		{Name: "noAddress", ID: "na"},
	}, nil
}

type fakeConn struct {
	grpc.ClientConnInterface
	address string
	closed  atomic.Bool
}

func (f *fakeConn) Close() error {
	f.closed.Store(true)
	return nil
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (f *fakeDialer) dial(ctx context.Context, address string) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn := &fakeConn{address: address}
	f.conns = append(f.conns, conn)
	return conn, nil
}

func TestDescription(t *testing.T) {
	lister := &fakeLister{}
	access := New(lister, "S:A", (&fakeDialer{}).dial, logging.NewTestLogger(t))

	description, err := access.Description(context.Background(), "ikService")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, description.ID, test.ShouldEqual, "ik")

	_, err = access.Description(context.Background(), "noAddress")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lister.calls.Load(), test.ShouldEqual, int32(1))

	_, err = access.Description(context.Background(), "unknown")
	test.That(t, utils.IsNotFoundError(err), test.ShouldBeTrue)
}

func TestServiceIsDialedOnce(t *testing.T) {
	dialer := &fakeDialer{}
	access := New(&fakeLister{}, "S:A", dialer.dial, logging.NewTestLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := access.Service(context.Background(), "ikService")
			test.That(t, err, test.ShouldBeNil)
			test.That(t, conn, test.ShouldNotBeNil)
		}()
	}
	wg.Wait()

	test.That(t, dialer.conns, test.ShouldHaveLength, 1)
	test.That(t, dialer.conns[0].address, test.ShouldEqual, "10.0.0.1:9000")

	_, err := access.Service(context.Background(), "noAddress")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no address")

	test.That(t, access.Close(), test.ShouldBeNil)
	test.That(t, dialer.conns[0].closed.Load(), test.ShouldBeTrue)

	_, err = access.Service(context.Background(), "ikService")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRegisterUnreachable(t *testing.T) {
	lister := &fakeLister{err: errors.New("register unreachable")}
	access := New(lister, "S:A", (&fakeDialer{}).dial, logging.NewTestLogger(t))

	_, err := access.Service(context.Background(), "ikService")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "register unreachable")

	access = New(nil, "S:A", nil, logging.NewTestLogger(t))
	_, err = access.Description(context.Background(), "ikService")
	test.That(t, err, test.ShouldNotBeNil)
}
