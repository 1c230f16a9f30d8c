// Package storage is the file-oriented target for registry snapshots. A
// snapshot is written as one object under a forward-slash path, either in a
// local directory or in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FileStore reads and writes whole files by path.
//
// Paths are forward-slash separated and relative to the store root.
type FileStore interface {
	// Read opens the named file. A missing file yields an error wrapping
	// os.ErrNotExist. The caller closes the reader.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or truncates the named file. The data is committed when
	// the returned writer is closed.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the paths under prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// S3Options configures the client built by Open for s3:// URLs.
type S3Options struct {
	Region   string
	Endpoint string // for MinIO, R2 and other S3-compatible services
}

// Open returns the FileStore named by url:
//
//	file:///var/backups/studies   local directory (created if missing)
//	s3://bucket/optional/prefix    S3 bucket, credentials from the AWS chain
//
// A URL without a scheme is a local directory.
func Open(ctx context.Context, url string, opts S3Options) (FileStore, error) {
	switch {
	case strings.HasPrefix(url, "s3://"):
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(url, "s3://"), "/")
		if bucket == "" {
			return nil, fmt.Errorf("storage: missing bucket in %q", url)
		}
		var loadOpts []func(*awsconfig.LoadOptions) error
		if opts.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("storage: load aws config: %w", err)
		}
		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if opts.Endpoint != "" {
				o.BaseEndpoint = aws.String(opts.Endpoint)
				o.UsePathStyle = true
			}
		})
		return NewS3(client, bucket, strings.Trim(prefix, "/")), nil
	case strings.HasPrefix(url, "file://"):
		return NewLocal(strings.TrimPrefix(url, "file://"))
	case strings.Contains(url, "://"):
		return nil, fmt.Errorf("storage: unsupported URL scheme: %s", url)
	default:
		return NewLocal(url)
	}
}
