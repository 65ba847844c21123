package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/PitokDf/express-app-useable/internal/config"
)

// objectClient is the subset of *minio.Client used by S3Store.
type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// S3Store keeps uploads in an S3-compatible bucket.
type S3Store struct {
	client  objectClient
	bucket  string
	baseURL string
}

// NewS3Store connects to the configured endpoint. When PublicBaseURL is
// empty, object URLs point at the endpoint in path style.
func NewS3Store(cfg config.UploadConfig) (*S3Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" || strings.HasPrefix(baseURL, "/") {
		scheme := "http"
		if cfg.S3UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.S3Endpoint, cfg.S3Bucket)
	}

	return newS3Store(client, cfg.S3Bucket, baseURL), nil
}

func newS3Store(client objectClient, bucket, baseURL string) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Put uploads the object with its content type.
func (s *S3Store) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return s.baseURL + "/" + url.PathEscape(name), nil
}

// Delete removes the object.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// Ping checks that the bucket exists.
func (s *S3Store) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !ok {
		return fmt.Errorf("%w: bucket %q does not exist", ErrStorage, s.bucket)
	}
	return nil
}

var _ Store = (*S3Store)(nil)
