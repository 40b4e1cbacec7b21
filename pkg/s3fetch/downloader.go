package s3fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/eunmann/d4query/internal/logctx"
	"github.com/eunmann/d4query/pkg/fileutil"
	"github.com/eunmann/d4query/pkg/logging"
)

// DownloaderConfig configures the S3 Download Manager.
type DownloaderConfig struct {
	// Concurrency is the number of concurrent download parts.
	// Default: NumCPU clamped to [4, 16].
	Concurrency int

	// PartSize is the size of each download part in bytes.
	// Default: 16MB.
	PartSize int64

	// TempDir holds downloads that are removed once the file is closed.
	// If empty, os.TempDir() is used.
	TempDir string

	// CacheDir, when set, keeps downloads at CacheDir/<bucket>/<key> and
	// reuses them while their size matches the remote object.
	CacheDir string
}

// DefaultDownloaderConfig returns sensible defaults based on the current machine.
func DefaultDownloaderConfig() DownloaderConfig {
	concurrency := min(max(runtime.NumCPU(), 4), 16)
	return DownloaderConfig{
		Concurrency: concurrency,
		PartSize:    16 * 1024 * 1024,
	}
}

// Validate sets defaults for zero values.
func (c *DownloaderConfig) Validate() {
	def := DefaultDownloaderConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.PartSize <= 0 {
		c.PartSize = def.PartSize
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
}

// Local describes a downloaded object.
type Local struct {
	// Path is the local file path.
	Path string
	// Temporary is true when the caller owns Path and should remove it.
	Temporary bool
	// Bytes is the object size.
	Bytes int64
}

// Downloader wraps the AWS S3 Download Manager for parallel range downloads.
type Downloader struct {
	client  *Client
	manager *manager.Downloader
	config  DownloaderConfig
}

// NewDownloader creates a Downloader from an existing client.
func NewDownloader(client *Client, cfg DownloaderConfig) *Downloader {
	cfg.Validate()

	mgr := manager.NewDownloader(client.s3Client, func(d *manager.Downloader) {
		d.Concurrency = cfg.Concurrency
		d.PartSize = cfg.PartSize
		d.BufferProvider = manager.NewPooledBufferedWriterReadFromProvider(int(cfg.PartSize))
	})

	return &Downloader{
		client:  client,
		manager: mgr,
		config:  cfg,
	}
}

// Config returns the downloader configuration.
func (d *Downloader) Config() DownloaderConfig {
	return d.config
}

// Fetch downloads the object named by uri and returns its local path.
func (d *Downloader) Fetch(ctx context.Context, uri string) (Local, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return Local{}, err
	}
	if d.config.CacheDir != "" {
		return d.fetchCached(ctx, bucket, key)
	}

	tmp, err := os.CreateTemp(d.config.TempDir, "d4fetch-*"+filepath.Ext(key))
	if err != nil {
		return Local{}, fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()

	n, err := d.download(ctx, bucket, key, path)
	if err != nil {
		os.Remove(path)
		return Local{}, err
	}
	return Local{Path: path, Temporary: true, Bytes: n}, nil
}

func (d *Downloader) fetchCached(ctx context.Context, bucket, key string) (Local, error) {
	log := logctx.FromContext(ctx)
	path := CachePath(d.config.CacheDir, bucket, key)

	size, err := d.client.ObjectSize(ctx, bucket, key)
	if err != nil {
		return Local{}, err
	}
	if fileutil.HasSize(path, size) {
		log.Debug().Str("path", path).Int64("bytes", size).Msg("using cached download")
		return Local{Path: path, Bytes: size}, nil
	}

	// Leftovers from an interrupted download of this or a sibling object.
	if err := fileutil.CleanupTmpFiles(filepath.Dir(path)); err != nil {
		log.Debug().Err(err).Msg("tmp file cleanup failed")
	}

	var n int64
	err = fileutil.WriteTmpThenMove(filepath.Dir(path), path, func(tmpPath string) error {
		var derr error
		n, derr = d.download(ctx, bucket, key, tmpPath)
		return derr
	})
	if err != nil {
		return Local{}, err
	}
	return Local{Path: path, Bytes: n}, nil
}

func (d *Downloader) download(ctx context.Context, bucket, key, dest string) (int64, error) {
	start := time.Now()

	file, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create destination file: %w", err)
	}
	defer file.Close()

	n, err := d.manager.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}

	logging.DownloadComplete(logctx.FromContext(ctx), logging.PhaseFetch, time.Since(start)).
		Str("bucket", bucket).
		Str("key", key).
		Count("bytes", n).
		Int("concurrency", d.config.Concurrency).
		LogDebug("downloaded depth file")
	return n, nil
}

// CachePath returns where an object is kept under cacheDir.
func CachePath(cacheDir, bucket, key string) string {
	return filepath.Join(cacheDir, bucket, filepath.Clean(filepath.FromSlash("/"+key)))
}
