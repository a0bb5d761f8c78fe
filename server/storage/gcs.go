package storage

import (
	"context"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/roomscan/roomscan/pkg/logs"
)

// GCS is a Google Cloud Storage-based blob store
type GCS struct {
	bucketName string
	bucket     *gcs.BucketHandle
	log        logs.Log
}

func NewGCS(log logs.Log, bucketName string) (*GCS, error) {
	ctx := context.Background()
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCS{
		bucketName: bucketName,
		bucket:     client.Bucket(bucketName),
		log:        log,
	}, nil
}

func (s *GCS) WriteFile(name string) (io.WriteCloser, error) {
	return s.bucket.Object(name).NewWriter(context.Background()), nil
}

func (s *GCS) ReadFile(name string) (*File, error) {
	r, err := s.bucket.Object(name).NewReader(context.Background())
	if err != nil {
		return nil, err
	}
	return &File{
		Reader:     r,
		ModifiedAt: r.Attrs.LastModified,
		Size:       r.Attrs.Size,
	}, nil
}

func (s *GCS) DeleteFile(name string) error {
	return s.bucket.Object(name).Delete(context.Background())
}

func (s *GCS) UploadURL(name, contentType string, expires time.Duration) (string, error) {
	return s.bucket.SignedURL(name, &gcs.SignedURLOptions{
		Method:      "PUT",
		ContentType: contentType,
		Expires:     time.Now().Add(expires),
	})
}
