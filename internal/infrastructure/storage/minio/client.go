// Package minio archives simulation heatmaps in an S3-compatible bucket.
package minio

import (
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
)

// MinIOAPI is the subset of *minio.Client the archive uses.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// HeatmapPrefix is the key prefix lifecycle rules apply to.
const HeatmapPrefix = "heatmaps/"

const (
	defaultRegion        = "us-east-1"
	defaultPresignExpiry = time.Hour
)

var (
	ErrClientClosed   = errors.New(errors.ErrCodeStorageError, "minio client is closed")
	ErrBucketNotFound = errors.New(errors.ErrCodeStorageError, "bucket not found")
	ErrConnectFailed  = errors.New(errors.ErrCodeServiceUnavailable, "failed to connect to minio")
)

// Client wraps a MinIO connection bound to one bucket.
type Client struct {
	api           MinIOAPI
	bucket        string
	region        string
	presignExpiry time.Duration
	retentionDays int
	logger        logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient connects, verifies credentials and makes sure the bucket exists.
func NewClient(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	c := NewClientFrom(api, cfg, log)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, ErrConnectFailed.WithCause(err).WithDetail(cfg.Endpoint)
	}
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	c.SetupLifecycle(ctx)

	c.logger.Info("minio client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", c.bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientFrom wraps an existing API implementation without touching the
// network.
func NewClientFrom(api MinIOAPI, cfg config.MinIOConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &Client{
		api:           api,
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		presignExpiry: cfg.PresignExpiry,
		retentionDays: cfg.RetentionDays,
		logger:        log.Named("minio"),
	}
	if c.region == "" {
		c.region = defaultRegion
	}
	if c.bucket == "" {
		c.bucket = config.DefaultMinIOBucket
	}
	if c.presignExpiry <= 0 {
		c.presignExpiry = defaultPresignExpiry
	}
	return c
}

func (c *Client) Bucket() string { return c.bucket }

// EnsureBucket creates the archive bucket when it is missing.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket existence")
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket").WithDetail(c.bucket)
	}
	c.logger.Info("created bucket", logging.String("bucket", c.bucket))
	return nil
}

// SetupLifecycle installs an expiry rule on heatmaps when retention is
// configured.  Failures are logged only; not every S3 backend supports it.
func (c *Client) SetupLifecycle(ctx context.Context) {
	if c.retentionDays <= 0 {
		return
	}
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{{
		ID:         "heatmap-expiry",
		Status:     "Enabled",
		RuleFilter: lifecycle.Filter{Prefix: HeatmapPrefix},
		Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(c.retentionDays)},
	}}
	if err := c.api.SetBucketLifecycle(ctx, c.bucket, cfg); err != nil {
		c.logger.Warn("failed to set bucket lifecycle", logging.String("bucket", c.bucket), logging.Err(err))
	}
}

// HealthCheck verifies the server answers and the bucket is still there.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio health check failed")
	}
	if !exists {
		return ErrBucketNotFound.WithDetail(c.bucket)
	}
	return nil
}

// Close marks the client unusable.  minio-go holds no persistent connection.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

//Personal.AI order the ending
