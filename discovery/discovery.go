// Package discovery finds MMU packages on disk, validates them and stages their
// implementation artifacts for loading.
package discovery

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/docker/go-units"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/utils"
)

const (
	// DefaultSettleDelay is how long a newly created package is left alone before it is
	// inspected, so that its writer can finish.
	DefaultSettleDelay = 500 * time.Millisecond
	// DefaultStagingDirName is the staging directory created below the root when none is
	// configured.
	DefaultStagingDirName = "temp"

	// DefaultMaxArtifactSize bounds the size of an extracted artifact.
	DefaultMaxArtifactSize int64 = 512 << 20

	maxManifestSize int64 = 1 << 20
)

// Options configure a Discovery.
type Options struct {
	// Root is the directory scanned for packages.
	Root string
	// StagingDir receives the extracted artifacts. Defaults to Root/temp.
	StagingDir string
	// Languages are the implementation languages accepted. Compared case insensitively.
	Languages []string
	// SettleDelay defaults to DefaultSettleDelay.
	SettleDelay time.Duration
	// MaxArtifactSize defaults to DefaultMaxArtifactSize.
	MaxArtifactSize int64
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// Discovery scans a root directory for MMU packages and watches it for new ones. Accepted
// descriptors are added to its catalog.
type Discovery struct {
	root        string
	stagingDir  string
	languages   map[string]struct{}
	settleDelay time.Duration
	maxSize     int64
	clock       clock.Clock
	catalog     *Catalog
	logger      logging.Logger

	// inspectMu serializes inspections so that two packages with the same id never extract
	// concurrently.
	inspectMu sync.Mutex

	watching     chan struct{}
	watchingOnce sync.Once
}

// New returns a Discovery feeding the given catalog.
func New(opts Options, catalog *Catalog, logger logging.Logger) (*Discovery, error) {
	if opts.Root == "" {
		return nil, errors.New("discovery root must be set")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve discovery root %s", opts.Root)
	}
	stagingDir := opts.StagingDir
	if stagingDir == "" {
		stagingDir = filepath.Join(root, DefaultStagingDirName)
	}
	if stagingDir, err = filepath.Abs(stagingDir); err != nil {
		return nil, errors.Wrapf(err, "failed to resolve staging directory %s", opts.StagingDir)
	}
	if len(opts.Languages) == 0 {
		return nil, errors.New("at least one supported language must be set")
	}
	languages := map[string]struct{}{}
	for _, language := range opts.Languages {
		languages[strings.ToUpper(language)] = struct{}{}
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.MaxArtifactSize <= 0 {
		opts.MaxArtifactSize = DefaultMaxArtifactSize
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	return &Discovery{
		root:        root,
		stagingDir:  stagingDir,
		languages:   languages,
		settleDelay: opts.SettleDelay,
		maxSize:     opts.MaxArtifactSize,
		clock:       opts.Clock,
		catalog:     catalog,
		logger:      logger,
		watching:    make(chan struct{}),
	}, nil
}

// Catalog returns the catalog fed by this discovery.
func (d *Discovery) Catalog() *Catalog {
	return d.catalog
}

// StagingDir returns the directory receiving the extracted artifacts.
func (d *Discovery) StagingDir() string {
	return d.stagingDir
}

// Watching is closed once the live watch is established.
func (d *Discovery) Watching() <-chan struct{} {
	return d.watching
}

// Run scans the root and then watches it until ctx is done.
func (d *Discovery) Run(ctx context.Context) error {
	d.Scan(ctx)
	return d.Watch(ctx)
}

// Scan inspects every package below the root, recursively. Packages that fail inspection are
// logged and skipped. It returns the number of packages accepted.
func (d *Discovery) Scan(ctx context.Context) int {
	accepted := 0
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			d.logger.Warnw("failed to walk MMU directory", "path", p, "error", err)
			if entry != nil && entry.IsDir() && p != d.root {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			if p == d.stagingDir {
				return fs.SkipDir
			}
			return nil
		}
		if !isArchive(entry.Name()) {
			return nil
		}
		if _, err := d.Inspect(p); err != nil {
			d.logger.Warnw("skipping MMU package", "path", p, "error", err)
			return nil
		}
		accepted++
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Errorw("scan of MMU directory failed", "root", d.root, "error", err)
	}
	d.logger.Infof("Scanned for loadable MMUs: %d loadable MMUs found", d.catalog.Len())
	return accepted
}

// Watch inspects packages created directly in the root until ctx is done. Subdirectories are
// not watched.
func (d *Discovery) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer goutils.UncheckedErrorFunc(watcher.Close)

	if err := watcher.Add(d.root); err != nil {
		return errors.Wrapf(err, "failed to watch %s", d.root)
	}
	d.watchingOnce.Do(func() { close(d.watching) })
	d.logger.Debugw("watching for new MMU packages", "root", d.root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !isArchive(event.Name) {
				continue
			}
			if !d.settle(ctx) {
				return nil
			}
			if _, err := d.Inspect(event.Name); err != nil {
				d.logger.Warnw("skipping MMU package", "path", event.Name, "error", err)
				continue
			}
			d.logger.Infof("Loaded new MMU package %s: %d loadable MMUs found", filepath.Base(event.Name), d.catalog.Len())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Errorw("file watcher error", "error", err)
		}
	}
}

// settle waits for the settle delay and returns false if ctx is done first.
func (d *Discovery) settle(ctx context.Context) bool {
	timer := d.clock.Timer(d.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Inspect validates the package at the given path, extracts its artifact to the staging
// directory as "<id><ext>" and adds its descriptor to the catalog. A rejected package leaves
// the catalog unchanged.
func (d *Discovery) Inspect(packagePath string) (mmi.MMUDescription, error) {
	d.inspectMu.Lock()
	defer d.inspectMu.Unlock()

	archive, err := openArchive(packagePath, max(d.maxSize, maxManifestSize))
	if err != nil {
		return mmi.MMUDescription{}, err
	}
	defer goutils.UncheckedErrorFunc(archive.Close)

	description, err := readManifest(archive)
	if err != nil {
		return mmi.MMUDescription{}, err
	}
	if d.catalog.Has(description.ID) {
		return mmi.MMUDescription{}, errors.Errorf("MMU %s is already loaded", description.ID)
	}
	if _, ok := d.languages[strings.ToUpper(description.Language)]; !ok {
		return mmi.MMUDescription{}, errors.Errorf("MMU %s has unsupported language %q", description.ID, description.Language)
	}

	entryName, err := findArtifact(archive, description.AssemblyName)
	if err != nil {
		return mmi.MMUDescription{}, errors.Wrapf(err, "MMU %s", description.ID)
	}
	if _, err := d.extract(archive, entryName, ArtifactName(description)); err != nil {
		return mmi.MMUDescription{}, errors.Wrapf(err, "MMU %s", description.ID)
	}

	if !d.catalog.Add(description) {
		return mmi.MMUDescription{}, errors.Errorf("MMU %s is already loaded", description.ID)
	}
	d.logger.Infow("accepted MMU package", "id", description.ID, "name", description.Name, "package", packagePath)
	return description, nil
}

func readManifest(archive packageArchive) (mmi.MMUDescription, error) {
	rc, _, err := archive.Open(mmi.ManifestFileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mmi.MMUDescription{}, errors.Errorf("package has no %s", mmi.ManifestFileName)
		}
		return mmi.MMUDescription{}, err
	}
	defer goutils.UncheckedErrorFunc(rc.Close)

	var description mmi.MMUDescription
	if err := json.NewDecoder(io.LimitReader(rc, maxManifestSize)).Decode(&description); err != nil {
		return mmi.MMUDescription{}, errors.Wrapf(err, "failed to parse %s", mmi.ManifestFileName)
	}
	if description.ID == "" {
		return mmi.MMUDescription{}, errors.Errorf("%s declares no ID", mmi.ManifestFileName)
	}
	if description.AssemblyName == "" {
		return mmi.MMUDescription{}, errors.Errorf("%s of MMU %s declares no AssemblyName", mmi.ManifestFileName, description.ID)
	}
	return description, nil
}

// findArtifact returns the name of the entry holding the declared artifact. An entry matches if
// its name or its base name equals the artifact name. Entries with a parent directory component
// are refused.
func findArtifact(archive packageArchive, assemblyName string) (string, error) {
	for _, name := range archive.Names() {
		if name != assemblyName && path.Base(strings.ReplaceAll(name, `\`, "/")) != assemblyName {
			continue
		}
		if utils.HasParentComponent(name) {
			return "", errors.Errorf("artifact entry %q escapes the package", name)
		}
		return name, nil
	}
	return "", errors.Errorf("package does not contain the artifact %q", assemblyName)
}

// ArtifactName is the file name of the staged artifact of an MMU: its id followed by the
// extension of the declared artifact.
func ArtifactName(description mmi.MMUDescription) string {
	return description.ID + filepath.Ext(description.AssemblyName)
}

// extract copies the entry into the staging directory under targetName. The copy is written to a
// temporary file first and renamed into place once complete.
func (d *Discovery) extract(archive packageArchive, entryName, targetName string) (_ string, err error) {
	if filepath.Base(targetName) != targetName {
		return "", errors.Errorf("unsafe artifact name %q", targetName)
	}
	target, err := utils.SafeJoinDir(d.stagingDir, targetName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.stagingDir, 0o750); err != nil {
		return "", errors.Wrapf(err, "failed to create staging directory %s", d.stagingDir)
	}

	rc, size, err := archive.Open(entryName)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open artifact entry %s", entryName)
	}
	defer goutils.UncheckedErrorFunc(rc.Close)
	if size > d.maxSize {
		return "", errors.Errorf("artifact %s of %s exceeds the maximum size of %s",
			entryName, units.BytesSize(float64(size)), units.BytesSize(float64(d.maxSize)))
	}

	tmp, err := os.CreateTemp(d.stagingDir, "."+targetName+"-*.tmp")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary artifact")
	}
	defer func() {
		if err != nil {
			utils.RemoveFileNoError(tmp.Name())
		}
	}()

	written, err := io.CopyN(tmp, rc, d.maxSize+1)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", multierr.Combine(errors.Wrap(err, "failed to extract artifact"), tmp.Close())
	}
	if written > d.maxSize {
		return "", multierr.Combine(errors.Errorf("artifact %s exceeds the maximum size of %s",
			entryName, units.BytesSize(float64(d.maxSize))), tmp.Close())
	}
	if err := tmp.Sync(); err != nil {
		return "", multierr.Combine(errors.Wrap(err, "failed to sync artifact"), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close artifact")
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", errors.Wrap(err, "failed to move artifact into place")
	}
	d.logger.Debugw("extracted MMU artifact", "entry", entryName, "target", target, "size", units.BytesSize(float64(written)))
	return target, nil
}
