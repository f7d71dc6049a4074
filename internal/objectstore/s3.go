package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options configures an S3Store. An Endpoint selects path-style addressing
// for S3-compatible servers such as MinIO.
type S3Options struct {
	Endpoint string
	Region   string
}

// S3Store stages objects in Amazon S3 or an S3-compatible server.
type S3Store struct {
	client *s3.Client
}

// NewS3Store loads credentials from the default AWS chain.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client}, nil
}

// NewS3StoreFromClient wraps an existing client.
func NewS3StoreFromClient(client *s3.Client) *S3Store {
	return &S3Store{client: client}
}

func (s *S3Store) NewWriter(ctx context.Context, bucket, object string) (Writer, error) {
	spool, err := os.CreateTemp("", "elt-s3-*.spool")
	if err != nil {
		return nil, err
	}
	return &s3Writer{ctx: ctx, client: s.client, bucket: bucket, key: object, spool: spool}, nil
}

func (s *S3Store) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(object),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, fmt.Errorf("%s: %w", s.URI(bucket, object), ErrNotFound)
		}
		return nil, err
	}
	return out.Body, nil
}

func (s *S3Store) URI(bucket, object string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, object)
}

func (s *S3Store) Close() error { return nil }

// s3Writer spools to a local file so the upload has a known length and
// nothing reaches the bucket unless the stream completes.
type s3Writer struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	spool  *os.File
	done   bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.spool.Write(p)
}

func (w *s3Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	defer w.discard()

	size, err := w.spool.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.spool.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err = w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.bucket),
		Key:           aws.String(w.key),
		Body:          w.spool,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", w.key, err)
	}
	return nil
}

func (w *s3Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.discard()
}

func (w *s3Writer) discard() {
	w.spool.Close()
	os.Remove(w.spool.Name())
}
