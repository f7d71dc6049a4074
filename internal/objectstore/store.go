// Package objectstore stages files in a bucket/object namespace. Backends are
// Google Cloud Storage, S3-compatible stores and a local directory.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// ErrNotFound is returned by NewReader when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Writer streams one object. Nothing is visible to readers until Close returns nil.
type Writer interface {
	io.Writer

	// Close commits the object, replacing any previous version.
	Close() error

	// Abort discards everything written. It is safe to call after Close.
	Abort()
}

// Store is a bucket/object namespace.
type Store interface {
	NewWriter(ctx context.Context, bucket, object string) (Writer, error)
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)

	// URI returns the canonical address of an object, e.g. gs://bucket/object.
	URI(bucket, object string) string

	Close() error
}

// New creates the Store selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *elt.PipelineConfig) (Store, error) {
	switch cfg.StorageBackend {
	case elt.StorageGCS:
		return NewGCSStore(ctx, cfg.GCPCredentialsFile)
	case elt.StorageS3:
		return NewS3Store(ctx, S3Options{Endpoint: cfg.S3Endpoint, Region: cfg.S3Region})
	case elt.StorageFile:
		return NewFileStore(cfg.StorageRoot)
	default:
		return nil, fmt.Errorf("unknown storage backend %q: %w", cfg.StorageBackend, elt.ErrConfiguration)
	}
}
