// Package storage stores assessment uploads and generated letters in an
// S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/appeal-cli/internal/config"
)

// Storage is the document bucket used by the appeal workflow.
type Storage interface {
	Bucket() string
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, path string, data []byte, contentType string, metadata map[string]string) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// objectAPI is the subset of *minio.Client used here.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// Client implements Storage on top of minio-go.
type Client struct {
	api    objectAPI
	bucket string
	region string

	mu      sync.Mutex
	ensured bool
}

// New connects to the configured endpoint. No request is made until the
// first call.
func New(cfg config.StorageConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "storage: create client")
	}
	return newWithAPI(mc, cfg.Bucket, cfg.Region), nil
}

func newWithAPI(api objectAPI, bucket, region string) *Client {
	return &Client{api: api, bucket: bucket, region: region}
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string { return c.bucket }

// EnsureBucket creates the bucket if it does not exist. Success is
// remembered for the life of the client.
func (c *Client) EnsureBucket(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ensured {
		return nil
	}

	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return eris.Wrapf(err, "storage: check bucket %s", c.bucket)
	}
	if !exists {
		if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
			return eris.Wrapf(err, "storage: create bucket %s", c.bucket)
		}
		zap.L().Info("storage: created bucket", zap.String("bucket", c.bucket))
	}
	c.ensured = true
	return nil
}

// Upload writes data to path.
func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string, metadata map[string]string) error {
	_, err := c.api.PutObject(ctx, c.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
		UserMetadata: metadata,
	})
	if err != nil {
		return eris.Wrapf(err, "storage: upload %s", path)
	}
	zap.L().Debug("storage: uploaded object",
		zap.String("bucket", c.bucket),
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// SignedURL returns a presigned GET URL for path valid for ttl.
func (c *Client) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	u, err := c.api.PresignedGetObject(ctx, c.bucket, path, ttl, nil)
	if err != nil {
		return "", eris.Wrapf(err, "storage: sign %s", path)
	}
	return u.String(), nil
}
