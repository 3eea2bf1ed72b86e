package discovery

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// archiveExtensions are the package file extensions discovery picks up.
var archiveExtensions = []string{".zip", ".tar.gz", ".tgz"}

// isArchive returns whether the file name has a package extension.
func isArchive(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// packageArchive is a read-only view of the named entries of a package file.
type packageArchive interface {
	// Names returns the names of the regular file entries.
	Names() []string
	// Open returns the content and uncompressed size of the named entry.
	Open(name string) (io.ReadCloser, int64, error)
	Close() error
}

func openArchive(path string, maxEntrySize int64) (packageArchive, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return openZipArchive(path)
	}
	return openTarGzArchive(path, maxEntrySize)
}

type zipArchive struct {
	reader *zip.ReadCloser
}

func openZipArchive(path string) (*zipArchive, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open zip archive %s", path)
	}
	return &zipArchive{reader: reader}, nil
}

func (a *zipArchive) Names() []string {
	names := make([]string, 0, len(a.reader.File))
	for _, file := range a.reader.File {
		if !file.FileInfo().IsDir() {
			names = append(names, file.Name)
		}
	}
	return names
}

func (a *zipArchive) Open(name string) (io.ReadCloser, int64, error) {
	for _, file := range a.reader.File {
		if file.Name == name && !file.FileInfo().IsDir() {
			rc, err := file.Open()
			if err != nil {
				return nil, 0, errors.Wrapf(err, "failed to open entry %s", name)
			}
			//nolint:gosec
			return rc, int64(file.UncompressedSize64), nil
		}
	}
	return nil, 0, os.ErrNotExist
}

func (a *zipArchive) Close() error {
	return a.reader.Close()
}

// tarGzArchive indexes the entry names on open and rescans the stream for every Open, since a
// tarball can only be read sequentially. Open buffers the entry in memory; entries larger than
// maxEntrySize are not read and only report their size.
type tarGzArchive struct {
	path         string
	names        []string
	maxEntrySize int64
}

func openTarGzArchive(path string, maxEntrySize int64) (*tarGzArchive, error) {
	archive := &tarGzArchive{path: path, maxEntrySize: maxEntrySize}
	err := archive.walk(func(header *tar.Header, _ io.Reader) (bool, error) {
		archive.names = append(archive.names, header.Name)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return archive, nil
}

// walk calls visit for every regular file entry until visit returns true.
func (a *tarGzArchive) walk(visit func(header *tar.Header, content io.Reader) (bool, error)) error {
	//nolint:gosec
	f, err := os.Open(a.path)
	if err != nil {
		return errors.Wrapf(err, "failed to open tarball %s", a.path)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	gzipReader, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "failed to read gzip stream of %s", a.path)
	}
	defer utils.UncheckedErrorFunc(gzipReader.Close)

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "failed to read tarball %s", a.path)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		done, err := visit(header, tarReader)
		if err != nil || done {
			return err
		}
	}
}

func (a *tarGzArchive) Names() []string {
	return a.names
}

func (a *tarGzArchive) Open(name string) (io.ReadCloser, int64, error) {
	var (
		content []byte
		size    int64
		found   bool
	)
	err := a.walk(func(header *tar.Header, reader io.Reader) (bool, error) {
		if header.Name != name {
			return false, nil
		}
		if header.Size > a.maxEntrySize {
			size, found = header.Size, true
			return true, nil
		}
		data, err := io.ReadAll(io.LimitReader(reader, header.Size))
		if err != nil {
			return true, err
		}
		content, size, found = data, header.Size, true
		return true, nil
	})
	if err != nil {
		return nil, 0, err
	}
	if !found {
		return nil, 0, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(content)), size, nil
}

func (a *tarGzArchive) Close() error {
	return nil
}
