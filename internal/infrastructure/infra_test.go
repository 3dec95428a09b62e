package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Massing-Sim/internal/config"
)

func TestOpen_AllDisabled(t *testing.T) {
	cfg := config.Default()

	inf, err := Open(context.Background(), cfg, "test", nil, nil)
	require.NoError(t, err)
	defer inf.Close()

	assert.Nil(t, inf.Postgres)
	assert.Nil(t, inf.Redis)
	assert.Nil(t, inf.MinIO)
	assert.Nil(t, inf.Producer)
	assert.Nil(t, inf.Runs)
	assert.Nil(t, inf.Artifacts)
	assert.Nil(t, inf.Events)
	assert.Nil(t, inf.Cache)
	assert.Nil(t, inf.Locks)
	assert.Empty(t, inf.Checks())
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	inf, err := Open(context.Background(), cfg, "test", nil, nil)
	require.NoError(t, err)
	defer inf.Close()

	require.NotNil(t, inf.Redis)
	assert.NotNil(t, inf.Cache)
	assert.NotNil(t, inf.Locks)

	checks := inf.Checks()
	require.Len(t, checks, 1)
	assert.Equal(t, "redis", checks[0].Name)
	assert.NoError(t, checks[0].Fn(context.Background()))

	ctx := context.Background()
	require.NoError(t, inf.Cache.Set(ctx, "k", "v", time.Minute))
	var got string
	require.NoError(t, inf.Cache.Get(ctx, "k", &got))
	assert.Equal(t, "v", got)

	mr.Close()
	assert.Error(t, checks[0].Fn(ctx))
}

func TestOpen_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 100 * time.Millisecond

	_, err := Open(context.Background(), cfg, "test", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestOpen_KafkaWithoutBrokers(t *testing.T) {
	cfg := config.Default()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil

	_, err := Open(context.Background(), cfg, "test", nil, nil)
	assert.Error(t, err)
}

func TestClose_PartlyOpened(t *testing.T) {
	(&Infra{}).Close()
}

//Personal.AI order the ending
