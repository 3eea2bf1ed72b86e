// Package testutils contains helpers shared by the tests of the adapter packages.
package testutils

import (
	"archive/tar"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"go.viam.com/test"

	"github.com/mosim-go/mmuadapter/mmi"
)

// Package describes the content of a test MMU package.
type Package struct {
	// Manifest is written as description.json unless nil.
	Manifest *mmi.MMUDescription
	// RawManifest is written as description.json verbatim when set.
	RawManifest []byte
	// Entries are written in name order.
	Entries map[string][]byte
}

// ArtifactPackage returns a package whose manifest declares the given id, language and
// artifact, and which contains that artifact.
func ArtifactPackage(id, language, assemblyName string) Package {
	return Package{
		Manifest: &mmi.MMUDescription{
			ID:           id,
			Name:         id + "MMU",
			AssemblyName: assemblyName,
			Language:     language,
			MotionType:   "Locomotion/Walk",
		},
		Entries: map[string][]byte{assemblyName: []byte("artifact of " + id)},
	}
}

func (p Package) files(tb testing.TB) ([]string, map[string][]byte) {
	tb.Helper()
	files := map[string][]byte{}
	for name, data := range p.Entries {
		files[name] = data
	}
	switch {
	case p.RawManifest != nil:
		files[mmi.ManifestFileName] = p.RawManifest
	case p.Manifest != nil:
		data, err := json.Marshal(p.Manifest)
		test.That(tb, err, test.ShouldBeNil)
		files[mmi.ManifestFileName] = data
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, files
}

// WriteZipPackage writes the package as a zip archive to dir/fileName and returns its path.
func WriteZipPackage(tb testing.TB, dir, fileName string, p Package) string {
	tb.Helper()
	names, files := p.files(tb)

	path := filepath.Join(dir, fileName)
	//nolint:gosec
	f, err := os.Create(path)
	test.That(tb, err, test.ShouldBeNil)
	defer func() {
		test.That(tb, f.Close(), test.ShouldBeNil)
	}()

	writer := zip.NewWriter(f)
	for _, name := range names {
		entry, err := writer.Create(name)
		test.That(tb, err, test.ShouldBeNil)
		_, err = entry.Write(files[name])
		test.That(tb, err, test.ShouldBeNil)
	}
	test.That(tb, writer.Close(), test.ShouldBeNil)
	return path
}

// WriteTarGzPackage writes the package as a gzipped tarball to dir/fileName and returns its
// path.
func WriteTarGzPackage(tb testing.TB, dir, fileName string, p Package) string {
	tb.Helper()
	names, files := p.files(tb)

	path := filepath.Join(dir, fileName)
	//nolint:gosec
	f, err := os.Create(path)
	test.That(tb, err, test.ShouldBeNil)
	defer func() {
		test.That(tb, f.Close(), test.ShouldBeNil)
	}()

	gzipWriter := gzip.NewWriter(f)
	tarWriter := tar.NewWriter(gzipWriter)
	for _, name := range names {
		test.That(tb, tarWriter.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(files[name])),
			Typeflag: tar.TypeReg,
		}), test.ShouldBeNil)
		_, err := tarWriter.Write(files[name])
		test.That(tb, err, test.ShouldBeNil)
	}
	test.That(tb, tarWriter.Close(), test.ShouldBeNil)
	test.That(tb, gzipWriter.Close(), test.ShouldBeNil)
	return path
}
