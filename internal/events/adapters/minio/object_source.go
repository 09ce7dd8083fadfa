package minio

import (
	"context"
	"fmt"
	"io"

	"funnel-service/internal/events/adapters/csv"
	funnel "funnel-service/internal/funnel/core/domain"
	"funnel-service/internal/funnel/core/ports"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Object    string
	UseSSL    bool
}

// objectStore opens one object for streaming.
type objectStore interface {
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

type clientStore struct {
	client *minio.Client
}

func (s clientStore) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing bucket or key before parsing starts.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// ObjectSource loads the CSV event log from an S3-compatible bucket.
type ObjectSource struct {
	store  objectStore
	bucket string
	object string
}

var _ ports.IndexSource = (*ObjectSource)(nil)

func NewObjectSource(cfg Config) (*ObjectSource, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &ObjectSource{
		store:  clientStore{client: client},
		bucket: cfg.Bucket,
		object: cfg.Object,
	}, nil
}

func (s *ObjectSource) LoadIndex(ctx context.Context) (*funnel.EventIndex, error) {
	rc, err := s.store.Open(ctx, s.bucket, s.object)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.location(), err)
	}
	defer rc.Close()

	return csv.ReadIndex(ctx, rc, s.location())
}

func (s *ObjectSource) location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.object)
}
