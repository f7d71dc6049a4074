package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore stages objects in Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a client from a service account key file, or from
// Application Default Credentials when credentialsFile is empty.
func NewGCSStore(ctx context.Context, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) NewWriter(ctx context.Context, bucket, object string) (Writer, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/csv"
	return &gcsWriter{w: w, cancel: cancel}, nil
}

func (s *GCSStore) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, fmt.Errorf("%s: %w", s.URI(bucket, object), ErrNotFound)
	}
	return r, err
}

func (s *GCSStore) URI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// gcsWriter uploads as it is written; the object appears only when Close succeeds.
// Cancelling the upload context abandons the upload.
type gcsWriter struct {
	w      *storage.Writer
	cancel context.CancelFunc
	done   bool
}

func (g *gcsWriter) Write(p []byte) (int, error) {
	return g.w.Write(p)
}

func (g *gcsWriter) Close() error {
	if g.done {
		return nil
	}
	g.done = true
	defer g.cancel()
	return g.w.Close()
}

func (g *gcsWriter) Abort() {
	if g.done {
		return
	}
	g.done = true
	g.cancel()
	_ = g.w.Close()
}
