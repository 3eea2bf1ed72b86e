package adapter

import (
	"context"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/mosim-go/mmuadapter/discovery"
	rgrpc "github.com/mosim-go/mmuadapter/grpc"
	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/module"
	"github.com/mosim-go/mmuadapter/register"
	"github.com/mosim-go/mmuadapter/serviceaccess"
	"github.com/mosim-go/mmuadapter/session"
	"github.com/mosim-go/mmuadapter/utils"
)

// Language is the implementation language the adapter reports and loads by default.
const Language = "GO"

// DefaultShutdownTimeout bounds the graceful shutdown done by Run.
const DefaultShutdownTimeout = 10 * time.Second

// Options configure a Controller.
type Options struct {
	// Name and ID identify the adapter at the register. ID defaults to a random UUID.
	Name string
	ID   string
	// Address is the host:port the adapter serves on and advertises.
	Address string
	// RegisterAddress is the host:port of the register.
	RegisterAddress string
	// MMUPath is the directory scanned for MMU packages.
	MMUPath string
	// StagingDir receives the extracted artifacts. Defaults to MMUPath/temp.
	StagingDir string
	// Languages accepted by discovery. Defaults to Language.
	Languages   []string
	SettleDelay time.Duration
	// MaxArtifactSize bounds extracted artifacts. Defaults to discovery.DefaultMaxArtifactSize.
	MaxArtifactSize int64
	// RetryInitial and RetryMax bound the waits between registration attempts.
	RetryInitial time.Duration
	RetryMax     time.Duration
	Clock        clock.Clock

	// Register replaces the gRPC register client dialed from RegisterAddress.
	Register register.Client
	// Loader replaces the default loader, which resolves Go MMUs from the build-time registry and
	// then from plugins.
	Loader module.Loader
	// Listener replaces the TCP listener opened on Address.
	Listener net.Listener
}

// Controller runs an adapter: it serves the adapter endpoint, discovers MMU packages and
// registers the adapter at the register until it succeeds.
type Controller struct {
	opts      Options
	logger    logging.Logger
	state     *State
	router    *Router
	discovery *discovery.Discovery
	register  register.Client
	closeReg  func() error

	mu         sync.Mutex
	listener   net.Listener
	server     *grpc.Server
	workers    *utils.StoppableWorkers
	registered *atomic.Bool
	serveErr   chan error
	closeOnce  sync.Once
}

// New creates a controller. Nothing runs until Start.
func New(opts Options, logger logging.Logger) (*Controller, error) {
	if opts.MMUPath == "" {
		return nil, errors.New("MMU path must be set")
	}
	if opts.Address == "" && opts.Listener == nil {
		return nil, errors.New("adapter address must be set")
	}
	if opts.RegisterAddress == "" && opts.Register == nil {
		return nil, errors.New("register address must be set")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if len(opts.Languages) == 0 {
		opts.Languages = []string{Language}
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	catalog := discovery.NewCatalog()
	disc, err := discovery.New(discovery.Options{
		Root:            opts.MMUPath,
		StagingDir:      opts.StagingDir,
		Languages:       opts.Languages,
		SettleDelay:     opts.SettleDelay,
		MaxArtifactSize: opts.MaxArtifactSize,
		Clock:           opts.Clock,
	}, catalog, logger.Sublogger("discovery"))
	if err != nil {
		return nil, err
	}

	c := &Controller{
		opts:       opts,
		logger:     logger,
		discovery:  disc,
		register:   opts.Register,
		registered: atomic.NewBool(false),
		serveErr:   make(chan error, 1),
	}
	if c.register == nil {
		client, err := register.Dial(context.Background(), opts.RegisterAddress, logger.Sublogger("register"))
		if err != nil {
			return nil, err
		}
		c.register = client
		c.closeReg = client.Close
	}

	loader := opts.Loader
	if loader == nil {
		loaderLogger := logger.Sublogger("loader")
		loader = module.NewLanguageLoader(map[string]module.Loader{
			Language: module.ChainLoader{
				module.NewRegistryLoader(disc.StagingDir(), loaderLogger),
				module.NewPluginLoader(disc.StagingDir(), loaderLogger),
			},
		}, loaderLogger)
	}

	servicesLogger := logger.Sublogger("services")
	sessions := session.NewStore(func(sceneID string) session.Services {
		return serviceaccess.New(c.register, sceneID, nil, servicesLogger)
	}, opts.Clock, logger.Sublogger("sessions"))

	description := mmi.AdapterDescription{
		Name:     opts.Name,
		ID:       opts.ID,
		Language: Language,
	}
	c.state = NewState(description, catalog, sessions, loader, opts.Clock)
	c.router = NewRouter(c.state, logger.Sublogger("router"))
	return c, nil
}

// Router returns the request router.
func (c *Controller) Router() *Router {
	return c.router
}

// State returns the adapter state.
func (c *Controller) State() *State {
	return c.state
}

// Discovery returns the package discovery.
func (c *Controller) Discovery() *discovery.Discovery {
	return c.discovery
}

// Registered returns whether the register accepted the adapter.
func (c *Controller) Registered() bool {
	return c.registered.Load()
}

// Addr returns the address the adapter listens on, nil before Start.
func (c *Controller) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

// Start listens on the adapter address and starts serving, discovery and registration in the
// background.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.server != nil {
		return errors.New("adapter already started")
	}

	info, err := os.Stat(c.opts.MMUPath)
	if err != nil {
		return errors.Wrap(err, "MMU path is not accessible")
	}
	if !info.IsDir() {
		return errors.Errorf("MMU path %s is not a directory", c.opts.MMUPath)
	}

	lis := c.opts.Listener
	if lis == nil {
		var lc net.ListenConfig
		if lis, err = lc.Listen(ctx, "tcp", c.opts.Address); err != nil {
			return errors.WithMessage(err, "failed to listen")
		}
	}
	advertised, err := advertisedAddress(c.opts.Address, lis.Addr())
	if err != nil {
		return multierr.Combine(err, lis.Close())
	}
	c.state.Description.Addresses = []mmi.IPAddress{advertised}
	c.listener = lis

	c.server = rgrpc.NewServer(c.logger.Sublogger("grpc"))
	c.server.RegisterService(&ServiceDesc, NewServer(c.router))

	c.logger.Infow("adapter listening", "address", lis.Addr().String(), "advertised", advertised.String(),
		"name", c.opts.Name, "id", c.opts.ID)
	c.workers = utils.NewStoppableWorkers(c.serve, c.discover, c.registerAdapter)
	return nil
}

// Run starts the adapter and blocks until ctx is done or serving fails, then closes it.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-c.serveErr:
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return multierr.Combine(serveErr, c.Close(closeCtx))
}

func (c *Controller) serve(ctx context.Context) {
	if err := c.server.Serve(c.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		c.logger.Errorw("failed to serve", "error", err)
		select {
		case c.serveErr <- err:
		default:
		}
	}
}

func (c *Controller) discover(ctx context.Context) {
	if err := c.discovery.Run(ctx); err != nil && ctx.Err() == nil {
		c.logger.Errorw("MMU discovery stopped", "root", c.opts.MMUPath, "error", err)
	}
}

// registerAdapter retries the registration until the register accepts it.
func (c *Controller) registerAdapter(ctx context.Context) {
	retry := utils.NewExponentialRetry(c.opts.Clock, c.logger, "register adapter")
	if c.opts.RetryInitial > 0 {
		retry.Initial = c.opts.RetryInitial
	}
	if c.opts.RetryMax > 0 {
		retry.Max = c.opts.RetryMax
	}

	err := retry.Run(ctx, func(ctx context.Context) error {
		resp, err := c.register.RegisterAdapter(ctx, c.state.Description)
		if err != nil {
			return err
		}
		if !resp.Successful {
			return errors.Errorf("register refused the adapter: %s", strings.Join(resp.LogData, "; "))
		}
		return nil
	})
	if err != nil {
		return
	}
	c.registered.Store(true)
	c.logger.Infow("successfully registered at the register", "register", c.opts.RegisterAddress)
}

// Close stops serving and the background work, unregisters the adapter and releases every
// session.
func (c *Controller) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		server, workers := c.server, c.workers
		c.mu.Unlock()

		c.logger.Info("shutting down gracefully")
		if server != nil {
			stopServer(ctx, server)
		}
		if workers != nil {
			workers.Stop()
		}

		var group errgroup.Group
		group.Go(func() error {
			return c.unregister(ctx)
		})
		group.Go(func() error {
			return c.state.Sessions.CloseAll(ctx)
		})
		err = group.Wait()
		if c.closeReg != nil {
			err = multierr.Combine(err, c.closeReg())
		}
	})
	return err
}

func (c *Controller) unregister(ctx context.Context) error {
	if !c.registered.Load() {
		return nil
	}
	resp, err := c.register.UnregisterAdapter(ctx, c.state.Description)
	if err != nil {
		return errors.Wrap(err, "failed to unregister adapter")
	}
	if !resp.Successful {
		c.logger.Warnw("register refused to unregister the adapter", "log", resp.LogData)
	}
	c.registered.Store(false)
	return nil
}

// stopServer stops the server gracefully, forcing it down once ctx is done.
func stopServer(ctx context.Context, server *grpc.Server) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		server.Stop()
		<-stopped
	}
}

// advertisedAddress is the configured address with the port the listener actually bound.
// Unspecified hosts are advertised as loopback.
func advertisedAddress(configured string, bound net.Addr) (mmi.IPAddress, error) {
	host := ""
	if configured != "" {
		address, err := mmi.ParseIPAddress(configured)
		if err != nil {
			return mmi.IPAddress{}, errors.Wrapf(err, "invalid adapter address %q", configured)
		}
		host = address.Address
		if tcp, ok := bound.(*net.TCPAddr); ok {
			address.Port = tcp.Port
		}
		if host != "" && !isUnspecified(host) {
			return address, nil
		}
	}
	tcp, ok := bound.(*net.TCPAddr)
	if !ok {
		return mmi.IPAddress{}, errors.Errorf("can not advertise listener address %s", bound)
	}
	if host == "" || isUnspecified(host) {
		host = "127.0.0.1"
	}
	return mmi.IPAddress{Address: host, Port: tcp.Port}, nil
}

func isUnspecified(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.IsUnspecified()
}
