package server

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/mosim-go/mmuadapter/config"
	rgrpc "github.com/mosim-go/mmuadapter/grpc"
	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/register"
	mmutestutils "github.com/mosim-go/mmuadapter/testutils"
)

func TestConfigFromCLI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adapter.json")
	test.That(t, os.WriteFile(path, []byte(`{
		"adapter_address": "127.0.0.1:8950",
		"register_address": "127.0.0.1:9009",
		"mmu_path": "/opt/mmus",
		"log_level": "WARN"
	}`), 0o600), test.ShouldBeNil)

	var captured *config.Config
	app := newApp(func(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
		captured = cfg
		return nil
	})

	err := app.Run([]string{"mmu-adapter", "-c", path, "-a", "127.0.0.1:8951", "--language", "go", "--language", "cpp"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, captured.AdapterAddress, test.ShouldEqual, "127.0.0.1:8951")
	test.That(t, captured.RegisterAddress, test.ShouldEqual, "127.0.0.1:9009")
	test.That(t, captured.MMUPath, test.ShouldEqual, "/opt/mmus")
	test.That(t, captured.LogLevel, test.ShouldEqual, "WARN")
	test.That(t, captured.Languages, test.ShouldResemble, []string{"GO", "CPP"})

	captured = nil
	err = app.Run([]string{"mmu-adapter", "-a", "127.0.0.1:8950", "-r", "127.0.0.1:9009", "-m", "/opt/mmus", "-l", "3"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, captured.LogLevel, test.ShouldEqual, "3")
	test.That(t, captured.Languages, test.ShouldResemble, []string{"GO"})

	captured = nil
	err = app.Run([]string{"mmu-adapter", "-a", "127.0.0.1:8950"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "register_address is required")
	test.That(t, captured, test.ShouldBeNil)
}

type recordingRegister struct {
	mu           sync.Mutex
	registered   []mmi.AdapterDescription
	unregistered []string
}

func (r *recordingRegister) RegisterAdapter(ctx context.Context, req *register.AdapterRequest) (*mmi.BoolResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, req.Description)
	resp := mmi.Success()
	return &resp, nil
}

func (r *recordingRegister) UnregisterAdapter(ctx context.Context, req *register.AdapterRequest) (*mmi.BoolResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregistered = append(r.unregistered, req.Description.ID)
	resp := mmi.Success()
	return &resp, nil
}

func (r *recordingRegister) GetRegisteredServices(ctx context.Context, req *register.ServicesRequest) (*register.ServicesResponse, error) {
	return &register.ServicesResponse{}, nil
}

func (r *recordingRegister) calls() ([]mmi.AdapterDescription, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mmi.AdapterDescription(nil), r.registered...), append([]string(nil), r.unregistered...)
}

func TestRunServer(t *testing.T) {
	logger := logging.NewTestLogger(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)
	registerServer := rgrpc.NewServer(logger)
	fake := &recordingRegister{}
	registerServer.RegisterService(&register.ServiceDesc, fake)
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		registerServer.Serve(listener)
	}()
	defer func() {
		registerServer.Stop()
		<-serveDone
	}()

	cfg := &config.Config{
		AdapterAddress:  "127.0.0.1:0",
		RegisterAddress: listener.Addr().String(),
		MMUPath:         t.TempDir(),
		LogFile:         filepath.Join(t.TempDir(), "adapter.log"),
		ID:              "adapter-under-test",
	}
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- RunServer(ctx, cfg, logging.NewBlankLogger("adapter"))
	}()

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		registered, _ := fake.calls()
		test.That(tb, registered, test.ShouldHaveLength, 1)
	})
	registered, _ := fake.calls()
	test.That(t, registered[0].ID, test.ShouldEqual, "adapter-under-test")
	test.That(t, registered[0].Addresses, test.ShouldHaveLength, 1)
	test.That(t, registered[0].Addresses[0].Port, test.ShouldBeGreaterThan, 0)

	cancel()
	test.That(t, <-runErr, test.ShouldBeNil)
	_, unregistered := fake.calls()
	test.That(t, unregistered, test.ShouldResemble, []string{"adapter-under-test"})

	logged, err := os.ReadFile(cfg.LogFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logged), test.ShouldContainSubstring, "MMU adapter")
}

func TestPackagesCommand(t *testing.T) {
	root := t.TempDir()
	mmutestutils.WriteZipPackage(t, root, "walk.zip", mmutestutils.ArtifactPackage("walk-id", "GO", "walk.so"))
	mmutestutils.WriteTarGzPackage(t, root, "idle.tgz", mmutestutils.ArtifactPackage("idle-id", "GO", "idle.so"))
	mmutestutils.WriteZipPackage(t, root, "other.zip", mmutestutils.ArtifactPackage("other-id", "C#", "other.dll"))

	var out bytes.Buffer
	app := NewApp()
	app.Writer = &out
	test.That(t, app.Run([]string{"mmu-adapter", "packages", root}), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "walk-id")
	test.That(t, out.String(), test.ShouldContainSubstring, "idle-id.so")
	test.That(t, out.String(), test.ShouldNotContainSubstring, "other-id")

	out.Reset()
	test.That(t, app.Run([]string{"mmu-adapter", "packages", "--language", "C#", root}), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "other-id")
	test.That(t, out.String(), test.ShouldNotContainSubstring, "walk-id")

	err := app.Run([]string{"mmu-adapter", "packages"})
	test.That(t, err, test.ShouldNotBeNil)
}
