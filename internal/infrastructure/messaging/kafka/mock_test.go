package kafka

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/Massing-Sim/pkg/types/common"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats { return kafka.WriterStats{} }

type mockKafkaReader struct {
	fetchFunc  func(ctx context.Context) (kafka.Message, error)
	commitFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc  func() error
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.commitFunc != nil {
		return m.commitFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaReader) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockKafkaReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{} }

// queueReader hands out msgs once each, then blocks until cancelled.
type queueReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
}

func (q *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	q.mu.Lock()
	if len(q.msgs) > 0 {
		m := q.msgs[0]
		q.msgs = q.msgs[1:]
		q.mu.Unlock()
		return m, nil
	}
	q.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (q *queueReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	q.mu.Lock()
	q.committed = append(q.committed, msgs...)
	q.mu.Unlock()
	return nil
}

func (q *queueReader) Committed() []kafka.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]kafka.Message(nil), q.committed...)
}

func (q *queueReader) Close() error             { return nil }
func (q *queueReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{} }

type capturePublisher struct {
	mu   sync.Mutex
	msgs []*common.ProducerMessage
	err  error
}

func (p *capturePublisher) Publish(_ context.Context, msg *common.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturePublisher) Messages() []*common.ProducerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*common.ProducerMessage(nil), p.msgs...)
}

type recorderStub struct {
	mu       sync.Mutex
	jobs     []string
	dlq      []string
	publishs map[string]int
}

func newRecorderStub() *recorderStub { return &recorderStub{publishs: map[string]int{}} }

func (r *recorderStub) RecordJob(result string) {
	r.mu.Lock()
	r.jobs = append(r.jobs, result)
	r.mu.Unlock()
}

func (r *recorderStub) RecordDeadLetter(topic string) {
	r.mu.Lock()
	r.dlq = append(r.dlq, topic)
	r.mu.Unlock()
}

func (r *recorderStub) RecordPublish(topic string, err error) {
	r.mu.Lock()
	key := topic + ":" + outcomeOf(err)
	r.publishs[key]++
	r.mu.Unlock()
}

func (r *recorderStub) Jobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.jobs...)
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

type mockKafkaConn struct {
	createFunc func(topics ...kafka.TopicConfig) error
	readFunc   func(topics ...string) ([]kafka.Partition, error)
	closed     bool
}

func (m *mockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if m.createFunc != nil {
		return m.createFunc(topics...)
	}
	return nil
}

func (m *mockKafkaConn) DeleteTopics(...string) error { return nil }

func (m *mockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.readFunc != nil {
		return m.readFunc(topics...)
	}
	return nil, nil
}

func (m *mockKafkaConn) Close() error {
	m.closed = true
	return nil
}

//Personal.AI order the ending
