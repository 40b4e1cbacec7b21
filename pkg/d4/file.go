// Package d4 answers point and aggregate queries over per-base depth files.
//
// A File is opened once and shared by any number of queries. Each query
// splits the file into partitions; a partition owns its primary decoder and
// secondary reader, so partitions can be processed independently and in
// parallel without locking.
package d4

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/eunmann/d4query/internal/logctx"
	"github.com/eunmann/d4query/pkg/format"
	"github.com/eunmann/d4query/pkg/logging"
	"github.com/eunmann/d4query/pkg/s3fetch"
)

// File is an open depth file.
//
// Thread Safety: File is safe for concurrent queries. Close must be called
// once, after every iterator and partition derived from the File is done.
type File struct {
	path    string
	reader  *format.Reader
	catalog *Catalog
	cleanup func() error
}

// Open opens the depth file at path. The header, chromosome list and
// partition directory are validated before the File is returned.
func Open(path string) (*File, error) {
	start := time.Now()

	reader, err := format.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	f := &File{
		path:    path,
		reader:  reader,
		catalog: newCatalog(reader.Chroms(), reader.ChromIndex()),
	}

	logging.FileOpened(*logging.L(), logging.PhaseOpen, time.Since(start)).
		Str("path", path).
		Int("chroms", f.catalog.Len()).
		Int("partitions", len(reader.Partitions())).
		Count("file_bytes", reader.Size()).
		LogDebug("opened depth file")

	return f, nil
}

// OpenURI opens a local path or an s3://bucket/key URI. Remote files are
// downloaded first; unless cfg.CacheDir is set, the download is removed
// when the File is closed.
func OpenURI(ctx context.Context, uri string, cfg s3fetch.DownloaderConfig) (*File, error) {
	if !strings.HasPrefix(uri, "s3://") {
		return Open(uri)
	}

	log := logctx.FromContext(ctx)
	client, err := s3fetch.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	local, err := s3fetch.NewDownloader(client, cfg).Fetch(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	f, err := Open(local.Path)
	if err != nil {
		if local.Temporary {
			os.Remove(local.Path)
		}
		return nil, err
	}
	if local.Temporary {
		f.cleanup = func() error { return os.Remove(local.Path) }
	}
	log.Debug().Str("uri", uri).Str("path", local.Path).Bool("cached", !local.Temporary).Msg("opened remote depth file")
	return f, nil
}

// Close releases the mapping and any downloaded temp file.
func (f *File) Close() error {
	err := f.reader.Close()
	if f.cleanup != nil {
		if cerr := f.cleanup(); cerr != nil && err == nil {
			err = cerr
		}
		f.cleanup = nil
	}
	return err
}

// Path returns the local path of the file.
func (f *File) Path() string {
	return f.path
}

// Catalog returns the chromosome catalog.
func (f *File) Catalog() *Catalog {
	return f.catalog
}

// Chroms returns the (name, size) list in file order. Repeated calls return
// equal lists.
func (f *File) Chroms() []ChromEntry {
	return f.catalog.List()
}
