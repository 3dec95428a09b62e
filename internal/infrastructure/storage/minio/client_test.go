package minio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Massing-Sim/internal/config"
	pkgerrors "github.com/turtacn/Massing-Sim/pkg/errors"
)

func TestNewClientFrom_Defaults(t *testing.T) {
	c := NewClientFrom(new(MockMinIOAPI), config.MinIOConfig{}, nil)
	assert.Equal(t, config.DefaultMinIOBucket, c.Bucket())
	assert.Equal(t, "us-east-1", c.region)
	assert.Equal(t, time.Hour, c.presignExpiry)
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		api := new(MockMinIOAPI)
		api.On("BucketExists", ctx, "heatmaps").Return(true, nil)
		c := NewClientFrom(api, config.MinIOConfig{Bucket: "heatmaps"}, nil)
		require.NoError(t, c.EnsureBucket(ctx))
		api.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("created", func(t *testing.T) {
		api := new(MockMinIOAPI)
		api.On("BucketExists", ctx, "heatmaps").Return(false, nil)
		api.On("MakeBucket", ctx, "heatmaps", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)
		c := NewClientFrom(api, config.MinIOConfig{Bucket: "heatmaps", Region: "eu-west-1"}, nil)
		require.NoError(t, c.EnsureBucket(ctx))
		api.AssertExpectations(t)
	})

	t.Run("check fails", func(t *testing.T) {
		api := new(MockMinIOAPI)
		api.On("BucketExists", ctx, "heatmaps").Return(false, errors.New("denied"))
		c := NewClientFrom(api, config.MinIOConfig{Bucket: "heatmaps"}, nil)
		err := c.EnsureBucket(ctx)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
	})
}

func TestSetupLifecycle(t *testing.T) {
	ctx := context.Background()

	api := new(MockMinIOAPI)
	c := NewClientFrom(api, config.MinIOConfig{Bucket: "b"}, nil)
	c.SetupLifecycle(ctx)
	api.AssertNotCalled(t, "SetBucketLifecycle", mock.Anything, mock.Anything, mock.Anything)

	api = new(MockMinIOAPI)
	api.On("SetBucketLifecycle", ctx, "b", mock.MatchedBy(func(cfg *lifecycle.Configuration) bool {
		return len(cfg.Rules) == 1 &&
			cfg.Rules[0].RuleFilter.Prefix == HeatmapPrefix &&
			cfg.Rules[0].Expiration.Days == lifecycle.ExpirationDays(30)
	})).Return(errors.New("not supported"))
	c = NewClientFrom(api, config.MinIOConfig{Bucket: "b", RetentionDays: 30}, nil)
	assert.NotPanics(t, func() { c.SetupLifecycle(ctx) })
	api.AssertExpectations(t)
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()
	api := new(MockMinIOAPI)
	api.On("BucketExists", ctx, "b").Return(true, nil).Once()
	api.On("BucketExists", ctx, "b").Return(false, nil).Once()
	api.On("BucketExists", ctx, "b").Return(false, errors.New("timeout")).Once()
	c := NewClientFrom(api, config.MinIOConfig{Bucket: "b"}, nil)

	assert.NoError(t, c.HealthCheck(ctx))
	err := c.HealthCheck(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket not found: b")
	assert.True(t, pkgerrors.IsCode(c.HealthCheck(ctx), pkgerrors.ErrCodeServiceUnavailable))

	require.NoError(t, c.Close())
	assert.Equal(t, ErrClientClosed, c.HealthCheck(ctx))
}

//Personal.AI order the ending
