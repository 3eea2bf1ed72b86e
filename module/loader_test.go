package module

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/mmu"
	"github.com/mosim-go/mmuadapter/registry"
	"github.com/mosim-go/mmuadapter/testutils/inject"
	"github.com/mosim-go/mmuadapter/utils"
)

func stage(t *testing.T, dir, name string) {
	t.Helper()
	test.That(t, os.WriteFile(filepath.Join(dir, name), []byte("artifact"), 0o600), test.ShouldBeNil)
}

func TestRegistryLoader(t *testing.T) {
	registry.RegisterMMU("loader-walk", func() mmu.MMU { return &inject.MMU{} })
	defer registry.DeregisterMMU("loader-walk")
	registry.RegisterMMU("loader-panic", func() mmu.MMU { panic("boom") })
	defer registry.DeregisterMMU("loader-panic")
	registry.RegisterMMU("loader-nil", func() mmu.MMU { return nil })
	defer registry.DeregisterMMU("loader-nil")

	stagingDir := t.TempDir()
	loader := NewRegistryLoader(stagingDir, logging.NewTestLogger(t))
	walk := mmi.MMUDescription{ID: "loader-walk", Language: "GO"}

	_, err := loader.Instantiate(context.Background(), walk)
	test.That(t, utils.IsNotFoundError(err), test.ShouldBeTrue)

	stage(t, stagingDir, "loader-walk.so")
	first, err := loader.Instantiate(context.Background(), walk)
	test.That(t, err, test.ShouldBeNil)
	second, err := loader.Instantiate(context.Background(), walk)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first, test.ShouldNotEqual, second)

	// A staged artifact whose id only shares a prefix does not count.
	stage(t, stagingDir, "loader-walking.so")
	_, err = loader.Instantiate(context.Background(), mmi.MMUDescription{ID: "loader"})
	test.That(t, utils.IsNotFoundError(err), test.ShouldBeTrue)

	stage(t, stagingDir, "loader-unknown.so")
	_, err = loader.Instantiate(context.Background(), mmi.MMUDescription{ID: "loader-unknown"})
	test.That(t, utils.IsNotFoundError(err), test.ShouldBeTrue)

	unchecked := NewRegistryLoader("", logging.NewTestLogger(t))
	_, err = unchecked.Instantiate(context.Background(), mmi.MMUDescription{ID: "loader-panic"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "panicked: boom")

	_, err = unchecked.Instantiate(context.Background(), mmi.MMUDescription{ID: "loader-nil"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "returned nil")
}

func TestPluginLoader(t *testing.T) {
	stagingDir := t.TempDir()
	loader := NewPluginLoader(stagingDir, logging.NewTestLogger(t))

	_, err := loader.Instantiate(context.Background(), mmi.MMUDescription{ID: "walk"})
	test.That(t, utils.IsNotFoundError(err), test.ShouldBeTrue)

	stage(t, stagingDir, "walk.so")
	_, err = loader.Instantiate(context.Background(), mmi.MMUDescription{ID: "walk"})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = loader.Instantiate(context.Background(), mmi.MMUDescription{ID: "../walk"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsafe path join")
}

func TestLanguageLoader(t *testing.T) {
	instance := &inject.MMU{}
	var requested []string
	goLoader := LoaderFunc(func(ctx context.Context, description mmi.MMUDescription) (mmu.MMU, error) {
		requested = append(requested, description.ID)
		return instance, nil
	})
	loader := NewLanguageLoader(map[string]Loader{"go": goLoader}, logging.NewTestLogger(t))

	found, err := loader.Instantiate(context.Background(), mmi.MMUDescription{ID: "walk", Language: "GO"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldEqual, instance)
	test.That(t, requested, test.ShouldResemble, []string{"walk"})

	_, err = loader.Instantiate(context.Background(), mmi.MMUDescription{ID: "walk", Language: "JAVA"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `no loader for language "JAVA"`)
}

func TestChainLoader(t *testing.T) {
	instance := &inject.MMU{}
	failing := LoaderFunc(func(ctx context.Context, description mmi.MMUDescription) (mmu.MMU, error) {
		return nil, utils.NewNotFoundError("registered MMU", description.ID)
	})
	succeeding := LoaderFunc(func(ctx context.Context, description mmi.MMUDescription) (mmu.MMU, error) {
		return instance, nil
	})

	found, err := ChainLoader{failing, succeeding}.Instantiate(context.Background(), mmi.MMUDescription{ID: "walk"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldEqual, instance)

	_, err = ChainLoader{failing, failing}.Instantiate(context.Background(), mmi.MMUDescription{ID: "walk"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, utils.IsNotFoundError(err), test.ShouldBeTrue)

	_, err = ChainLoader{}.Instantiate(context.Background(), mmi.MMUDescription{ID: "walk"})
	test.That(t, err, test.ShouldNotBeNil)
}
