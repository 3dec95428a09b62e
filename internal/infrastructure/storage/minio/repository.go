package minio

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrUploadFailed   = errors.New(errors.ErrCodeStorageError, "upload failed")
	ErrInvalidKey     = errors.New(errors.ErrCodeValidation, "object key is required")
)

// ArchiveRecorder receives the outcome of every Put.
type ArchiveRecorder interface {
	RecordArchive(err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordArchive(error) {}

// ObjectInfo describes a stored artifact.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// ArtifactRepository stores heatmaps under their run key.  It implements
// simulation.ArtifactStore.
type ArtifactRepository struct {
	client   *Client
	logger   logging.Logger
	recorder ArchiveRecorder
}

func NewArtifactRepository(client *Client, log logging.Logger, rec ArchiveRecorder) *ArtifactRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &ArtifactRepository{client: client, logger: log.Named("artifacts"), recorder: rec}
}

// Put uploads r under key.  An empty contentType is sniffed from the first
// bytes of r.
func (r *ArtifactRepository) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (err error) {
	defer func() { r.recorder.RecordArchive(err) }()

	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if err := r.client.checkOpen(); err != nil {
		return err
	}
	if contentType == "" {
		br := bufio.NewReaderSize(body, 512)
		head, _ := br.Peek(512)
		contentType = http.DetectContentType(head)
		body = br
	}

	info, err := r.client.api.PutObject(ctx, r.client.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return ErrUploadFailed.WithCause(err).WithDetail(key)
	}
	r.logger.Debug("artifact stored",
		logging.String("key", key),
		logging.Int64("size", info.Size),
		logging.String("etag", info.ETag))
	return nil
}

// Stat returns ErrObjectNotFound for a missing key.
func (r *ArtifactRepository) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	if err := r.client.checkOpen(); err != nil {
		return nil, err
	}
	info, err := r.client.api.StatObject(ctx, r.client.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "stat object failed")
	}
	return &ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

func (r *ArtifactRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.Stat(ctx, key)
	if errors.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (r *ArtifactRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.checkOpen(); err != nil {
		return err
	}
	if err := r.client.api.RemoveObject(ctx, r.client.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "delete object failed")
	}
	return nil
}

// PresignedURL returns a temporary download link.  A non-positive expiry
// uses the configured default.
func (r *ArtifactRepository) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrInvalidKey
	}
	if err := r.client.checkOpen(); err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = r.client.presignExpiry
	}
	u, err := r.client.api.PresignedGetObject(ctx, r.client.bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "presign failed")
	}
	return u.String(), nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

//Personal.AI order the ending
