package fetcher

import (
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens a local input file. Files ending in .gz or .bz2 are
// decompressed on the fly; a .zip archive must contain exactly one file,
// which is streamed.
func Open(path string) (io.ReadCloser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return openZIPSingle(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "fetcher: gzip header %s", path)
		}
		return &multiCloser{Reader: gz, closers: []io.Closer{f, gz}}, nil
	case ".bz2":
		return &multiCloser{Reader: bzip2.NewReader(f), closers: []io.Closer{f}}, nil
	default:
		return f, nil
	}
}

func openZIPSingle(path string) (io.ReadCloser, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}

	var files []*zip.File
	for _, f := range r.File {
		if !f.FileInfo().IsDir() {
			files = append(files, f)
		}
	}
	if len(files) != 1 {
		r.Close() //nolint:errcheck
		return nil, eris.Errorf("zip: expected exactly 1 file, got %d", len(files))
	}

	rc, err := files[0].Open()
	if err != nil {
		r.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "zip: open entry %s", files[0].Name)
	}
	return &multiCloser{Reader: rc, closers: []io.Closer{r, rc}}, nil
}

// Create creates (or truncates) an output file, making parent directories
// as needed.
func Create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "fetcher: mkdir %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: create %s", path)
	}
	return f, nil
}
