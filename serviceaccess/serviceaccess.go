// Package serviceaccess gives the MMUs of a session lazy access to the auxiliary services
// brokered by the register.
package serviceaccess

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"

	rgrpc "github.com/mosim-go/mmuadapter/grpc"
	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/utils"
)

// Lister lists the services available to a session. It is satisfied by register.Client.
type Lister interface {
	GetRegisteredServices(ctx context.Context, sessionID string) ([]mmi.ServiceDescription, error)
}

// Conn is a client connection owned by an Access.
type Conn interface {
	grpc.ClientConnInterface
	Close() error
}

// DialFunc connects to a service address.
type DialFunc func(ctx context.Context, address string) (Conn, error)

// Access resolves services by name on first use and caches their descriptions and connections
// until it is closed.
type Access struct {
	lister    Lister
	sessionID string
	dial      DialFunc
	logger    logging.Logger

	group singleflight.Group

	mu           sync.Mutex
	descriptions map[string]mmi.ServiceDescription
	conns        map[string]Conn
	closed       bool
}

// New returns the service access of a session. A nil dial uses the adapter's gRPC dialer.
func New(lister Lister, sessionID string, dial DialFunc, logger logging.Logger) *Access {
	if dial == nil {
		dial = func(ctx context.Context, address string) (Conn, error) {
			return rgrpc.Dial(ctx, address, logger)
		}
	}
	return &Access{
		lister:       lister,
		sessionID:    sessionID,
		dial:         dial,
		logger:       logger,
		descriptions: map[string]mmi.ServiceDescription{},
		conns:        map[string]Conn{},
	}
}

// Description returns the description of the named service, asking the register when the name
// is not cached yet.
func (a *Access) Description(ctx context.Context, name string) (mmi.ServiceDescription, error) {
	a.mu.Lock()
	description, ok := a.descriptions[name]
	a.mu.Unlock()
	if ok {
		return description, nil
	}

	if _, err, _ := a.group.Do("list", func() (interface{}, error) {
		return nil, a.refresh(ctx)
	}); err != nil {
		return mmi.ServiceDescription{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	description, ok = a.descriptions[name]
	if !ok {
		return mmi.ServiceDescription{}, utils.NewNotFoundError("service", name)
	}
	return description, nil
}

func (a *Access) refresh(ctx context.Context) error {
	if a.lister == nil {
		return errors.New("no register available to look up services")
	}
	services, err := a.lister.GetRegisteredServices(ctx, a.sessionID)
	if err != nil {
		return errors.Wrap(err, "failed to list registered services")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, service := range services {
		a.descriptions[service.Name] = service
	}
	a.logger.Debugw("refreshed service descriptions", "session", a.sessionID, "count", len(services))
	return nil
}

// Service returns a connection to the named service. The first call per name dials the first
// address of the service; later calls reuse the connection.
func (a *Access) Service(ctx context.Context, name string) (grpc.ClientConnInterface, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, errors.New("service access is closed")
	}
	conn, ok := a.conns[name]
	a.mu.Unlock()
	if ok {
		return conn, nil
	}

	result, err, _ := a.group.Do("dial:"+name, func() (interface{}, error) {
		return a.connect(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return result.(Conn), nil
}

func (a *Access) connect(ctx context.Context, name string) (Conn, error) {
	a.mu.Lock()
	if conn, ok := a.conns[name]; ok {
		a.mu.Unlock()
		return conn, nil
	}
	a.mu.Unlock()

	description, err := a.Description(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(description.Addresses) == 0 {
		return nil, errors.Errorf("service %q has no address", name)
	}

	address := description.Addresses[0].String()
	conn, err := a.dial(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to service %q", name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, multierr.Combine(errors.New("service access is closed"), conn.Close())
	}
	a.conns[name] = conn
	a.logger.Debugw("connected to service", "session", a.sessionID, "service", name, "address", address)
	return conn, nil
}

// Close closes every cached connection.
func (a *Access) Close() error {
	a.mu.Lock()
	conns := a.conns
	a.conns = map[string]Conn{}
	a.closed = true
	a.mu.Unlock()

	var err error
	for name, conn := range conns {
		err = multierr.Combine(err, errors.Wrapf(conn.Close(), "closing connection to %q", name))
	}
	return err
}
