package kafka

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
	"github.com/turtacn/Massing-Sim/pkg/types/common"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
	ErrConsumerClosed = errors.New(errors.ErrCodeMessagingError, "consumer closed")
)

// Dead-letter headers.
const (
	HeaderOriginalTopic = "x-original-topic"
	HeaderError         = "x-error"
	HeaderAttempts      = "x-attempts"
)

// RetryConfig defines retry behaviour.  Once MaxRetries are exhausted the
// message goes to DeadLetterTopic, or to DeadLetterTopicFor(topic) when that
// is empty.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetterTopic string
	DisableDLQ      bool
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topics          []string
	AutoOffsetReset string // earliest | latest
	Concurrency     int
	SessionTimeout  time.Duration
	MaxWait         time.Duration
	Security        SecurityConfig
	RetryConfig     RetryConfig
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.ReaderStats
}

// ConsumeRecorder receives per-message outcomes: success, error, skipped
// and dlq.
type ConsumeRecorder interface {
	RecordJob(result string)
	RecordDeadLetter(topic string)
}

type nopConsumeRecorder struct{}

func (nopConsumeRecorder) RecordJob(string)        {}
func (nopConsumeRecorder) RecordDeadLetter(string) {}

// ConsumerStats is a snapshot of consumer counters.
type ConsumerStats struct {
	Consumed     int64
	Processed    int64
	Failed       int64
	Retried      int64
	DeadLettered int64
}

// Consumer fetches from a consumer group and dispatches to per-topic
// handlers on Concurrency goroutines.
type Consumer struct {
	reader     ReaderInterface
	config     ConsumerConfig
	logger     logging.Logger
	deadLetter Publisher
	recorder   ConsumeRecorder

	mu       sync.RWMutex
	handlers map[string]common.MessageHandler

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	consumed, processed, failed, retried, deadLettered atomic.Int64
}

// NewConsumer builds a group reader.  deadLetter may be nil, in which case
// exhausted messages are logged and dropped.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger, deadLetter Publisher, rec ConsumeRecorder) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = time.Second
	}

	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	tlsCfg, err := cfg.Security.tlsConfig()
	if err != nil {
		return nil, err
	}
	dialer.TLS = tlsCfg
	mech, err := cfg.Security.mechanism()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to create SASL mechanism")
	}
	dialer.SASLMechanism = mech

	readerCfg := kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    cfg.Topics,
		MinBytes:       1,
		MaxBytes:       10 * 1024 * 1024,
		MaxWait:        cfg.MaxWait,
		SessionTimeout: cfg.SessionTimeout,
		StartOffset:    kafka.FirstOffset,
		Dialer:         dialer,
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}
	return newConsumer(kafka.NewReader(readerCfg), cfg, logger, deadLetter, rec), nil
}

func newConsumer(r ReaderInterface, cfg ConsumerConfig, logger logging.Logger, deadLetter Publisher, rec ConsumeRecorder) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if rec == nil {
		rec = nopConsumeRecorder{}
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Consumer{
		reader:     r,
		config:     cfg,
		logger:     logger.Named("kafka.consumer"),
		deadLetter: deadLetter,
		recorder:   rec,
		handlers:   make(map[string]common.MessageHandler),
	}
}

// Subscribe registers handler for topic, replacing any previous one.
func (c *Consumer) Subscribe(topic string, handler common.MessageHandler) {
	c.mu.Lock()
	c.handlers[topic] = handler
	c.mu.Unlock()
	c.logger.Info("subscribed to topic", logging.String("topic", topic))
}

// Start launches the fetch loops and returns immediately.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for i := 0; i < c.config.Concurrency; i++ {
		c.wg.Add(1)
		go c.consumeLoop(ctx)
	}
	c.logger.Info("kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.Int("concurrency", c.config.Concurrency))
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for ctx.Err() == nil {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch message failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		c.consumed.Add(1)
		c.handle(ctx, m)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	msg := fromKafkaMessage(m)

	c.mu.RLock()
	handler, ok := c.handlers[m.Topic]
	c.mu.RUnlock()

	if !ok {
		c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
		c.recorder.RecordJob("skipped")
		c.commit(ctx, m)
		return
	}

	if err := c.processMessage(ctx, msg, handler); err != nil {
		// Cancelled mid-retry: leave uncommitted so the group redelivers.
		c.failed.Add(1)
		return
	}
	c.commit(ctx, m)
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.logger.Error("commit failed",
			logging.String("topic", m.Topic),
			logging.Int64("offset", m.Offset),
			logging.Err(err))
	}
}

// processMessage runs handler with exponential backoff.  It returns an error
// only when ctx ends before the message was settled; exhausted messages are
// dead-lettered and reported as handled.
func (c *Consumer) processMessage(ctx context.Context, msg *common.Message, handler common.MessageHandler) error {
	err := handler(ctx, msg)
	if err == nil {
		c.processed.Add(1)
		c.recorder.RecordJob("success")
		return nil
	}

	rc := c.config.RetryConfig
	backoff := rc.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	maxBackoff := rc.MaxRetryBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	attempts := 1
	for i := 0; i < rc.MaxRetries; i++ {
		c.retried.Add(1)
		c.logger.Warn("message handler failed, retrying",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Int("attempt", attempts),
			logging.Err(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		attempts++
		if err = handler(ctx, msg); err == nil {
			c.processed.Add(1)
			c.recorder.RecordJob("success")
			return nil
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	c.logger.Error("message processing failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Int("attempts", attempts),
		logging.Err(err))
	c.recorder.RecordJob("error")
	c.sendToDeadLetter(ctx, msg, err, attempts)
	return nil
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg *common.Message, cause error, attempts int) {
	if c.deadLetter == nil || c.config.RetryConfig.DisableDLQ {
		return
	}
	topic := c.config.RetryConfig.DeadLetterTopic
	if topic == "" {
		topic = DeadLetterTopicFor(msg.Topic)
	}

	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderError] = cause.Error()
	headers[HeaderAttempts] = strconv.Itoa(attempts)

	dl := &common.ProducerMessage{Topic: topic, Key: msg.Key, Value: msg.Value, Headers: headers}
	if err := c.deadLetter.Publish(ctx, dl); err != nil {
		c.logger.Error("failed to send to dead letter topic", logging.String("topic", topic), logging.Err(err))
		return
	}
	c.deadLettered.Add(1)
	c.recorder.RecordDeadLetter(topic)
	c.recorder.RecordJob("dlq")
}

func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Consumed:     c.consumed.Load(),
		Processed:    c.processed.Load(),
		Failed:       c.failed.Load(),
		Retried:      c.retried.Load(),
		DeadLettered: c.deadLettered.Load(),
	}
}

// Close stops the loops, waits for in-flight handlers and closes the reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	err := c.reader.Close()
	c.logger.Info("kafka consumer closed", logging.Int64("consumed", c.consumed.Load()))
	return err
}

func fromKafkaMessage(m kafka.Message) *common.Message {
	msg := &common.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "GroupID required")
	}
	if len(cfg.Topics) == 0 {
		return errors.New(errors.ErrCodeValidation, "at least one topic required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.New(errors.ErrCodeValidation, "invalid AutoOffsetReset").WithDetail(cfg.AutoOffsetReset)
	}
	if cfg.RetryConfig.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "MaxRetries must be >= 0")
	}
	return cfg.Security.validate()
}

//Personal.AI order the ending
