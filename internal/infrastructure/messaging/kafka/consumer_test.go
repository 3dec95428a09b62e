package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Massing-Sim/pkg/types/common"
)

func newTestConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "msim-worker",
		Topics:  []string{"jobs"},
		RetryConfig: RetryConfig{
			MaxRetries:   2,
			RetryBackoff: time.Millisecond,
		},
	}
}

func TestValidateConsumerConfig(t *testing.T) {
	assert.NoError(t, ValidateConsumerConfig(newTestConsumerConfig()))

	cfg := newTestConsumerConfig()
	cfg.Brokers = nil
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.GroupID = ""
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.Topics = nil
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.AutoOffsetReset = "middle"
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.RetryConfig.MaxRetries = -1
	assert.Error(t, ValidateConsumerConfig(cfg))
}

func TestStart_AlreadyRunning(t *testing.T) {
	c := newConsumer(&mockKafkaReader{}, newTestConsumerConfig(), nil, nil, nil)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()
	assert.Equal(t, ErrAlreadyRunning, c.Start(context.Background()))
}

func TestConsume_DispatchesAndCommits(t *testing.T) {
	q := &queueReader{msgs: []kafka.Message{
		{Topic: "jobs", Offset: 1, Value: []byte("a"), Headers: []kafka.Header{{Key: "request_id", Value: []byte("r1")}}},
		{Topic: "unknown", Offset: 2, Value: []byte("b")},
		{Topic: "jobs", Offset: 3, Value: []byte("c")},
	}}
	rec := newRecorderStub()
	cfg := newTestConsumerConfig()
	cfg.Concurrency = 2
	c := newConsumer(q, cfg, nil, nil, rec)

	var handled atomic.Int32
	var sawHeader atomic.Bool
	c.Subscribe("jobs", func(_ context.Context, msg *common.Message) error {
		if msg.Headers["request_id"] == "r1" {
			sawHeader.Store(true)
		}
		handled.Add(1)
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return len(q.Committed()) == 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	assert.Equal(t, int32(2), handled.Load())
	assert.True(t, sawHeader.Load())
	assert.ElementsMatch(t, []string{"success", "success", "skipped"}, rec.Jobs())
	assert.Equal(t, int64(3), c.Stats().Consumed)
	assert.Equal(t, int64(2), c.Stats().Processed)
}

func TestProcessMessage_RetrySuccess(t *testing.T) {
	c := newConsumer(&mockKafkaReader{}, newTestConsumerConfig(), nil, nil, nil)

	attempts := 0
	err := c.processMessage(context.Background(), &common.Message{Topic: "jobs"}, func(context.Context, *common.Message) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(1), c.Stats().Retried)
}

func TestProcessMessage_ExhaustedGoesToDeadLetter(t *testing.T) {
	dlq := &capturePublisher{}
	rec := newRecorderStub()
	c := newConsumer(&mockKafkaReader{}, newTestConsumerConfig(), nil, dlq, rec)

	attempts := 0
	msg := &common.Message{Topic: "jobs", Key: []byte("run-1"), Value: []byte("payload"), Headers: map[string]string{"request_id": "r"}}
	err := c.processMessage(context.Background(), msg, func(context.Context, *common.Message) error {
		attempts++
		return errors.New("compute down")
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	sent := dlq.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "jobs.dlq", sent[0].Topic)
	assert.Equal(t, "run-1", string(sent[0].Key))
	assert.Equal(t, "payload", string(sent[0].Value))
	assert.Equal(t, "jobs", sent[0].Headers[HeaderOriginalTopic])
	assert.Equal(t, "compute down", sent[0].Headers[HeaderError])
	assert.Equal(t, "3", sent[0].Headers[HeaderAttempts])
	assert.Equal(t, "r", sent[0].Headers["request_id"])
	_, mutated := msg.Headers[HeaderError]
	assert.False(t, mutated)

	assert.Equal(t, []string{"jobs.dlq"}, rec.dlq)
	assert.Equal(t, []string{"error", "dlq"}, rec.Jobs())
	assert.Equal(t, int64(1), c.Stats().DeadLettered)
}

func TestProcessMessage_ConfiguredDeadLetterTopic(t *testing.T) {
	dlq := &capturePublisher{}
	cfg := newTestConsumerConfig()
	cfg.RetryConfig.MaxRetries = 0
	cfg.RetryConfig.DeadLetterTopic = "graveyard"
	c := newConsumer(&mockKafkaReader{}, cfg, nil, dlq, nil)

	require.NoError(t, c.processMessage(context.Background(), &common.Message{Topic: "jobs"}, func(context.Context, *common.Message) error {
		return errors.New("bad payload")
	}))
	require.Len(t, dlq.Messages(), 1)
	assert.Equal(t, "graveyard", dlq.Messages()[0].Topic)
}

func TestProcessMessage_CancelledDuringBackoff(t *testing.T) {
	cfg := newTestConsumerConfig()
	cfg.RetryConfig.RetryBackoff = time.Hour
	dlq := &capturePublisher{}
	c := newConsumer(&mockKafkaReader{}, cfg, nil, dlq, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.processMessage(ctx, &common.Message{Topic: "jobs"}, func(context.Context, *common.Message) error {
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dlq.Messages())
}

func TestClose_ClosesReaderOnce(t *testing.T) {
	closes := 0
	c := newConsumer(&mockKafkaReader{closeFunc: func() error { closes++; return nil }}, newTestConsumerConfig(), nil, nil, nil)
	require.NoError(t, c.Close())
	assert.Equal(t, 0, closes)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, closes)
}

//Personal.AI order the ending
