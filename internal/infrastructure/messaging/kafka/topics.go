package kafka

import (
	"context"
	stderrors "errors"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
	"github.com/turtacn/Massing-Sim/pkg/types/common"
)

// Default topic names.  The deployed names come from config.
const (
	TopicJobRequested = config.DefaultKafkaJobTopic
	TopicRunCompleted = config.DefaultKafkaEventTopic

	deadLetterSuffix = ".dlq"
)

// DeadLetterTopicFor names the dead-letter topic of topic.
func DeadLetterTopicFor(topic string) string { return topic + deadLetterSuffix }

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	DeleteTopics(topics ...string) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the gateway's topics through the cluster controller.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials brokers[0], looks up the controller and keeps a
// connection to it; topic creation must go to the controller.
func NewTopicManager(ctx context.Context, brokers []string, sec SecurityConfig, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	dialer := &kafka.Dialer{DualStack: true}
	var err error
	if dialer.TLS, err = sec.tlsConfig(); err != nil {
		return nil, err
	}
	if dialer.SASLMechanism, err = sec.mechanism(); err != nil {
		return nil, err
	}

	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to dial kafka")
	}
	defer conn.Close()

	ctrl, err := conn.Controller()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to find kafka controller")
	}
	ctrlConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to dial kafka controller")
	}
	return &TopicManager{conn: ctrlConn, logger: logger.Named("kafka.topics")}, nil
}

func (m *TopicManager) CreateTopic(ctx context.Context, cfg common.TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "NumPartitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "ReplicationFactor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(cfg.RetentionMs, 10)})
	}
	if cfg.CleanupPolicy != "" {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: cfg.CleanupPolicy})
	}
	for k, v := range cfg.Configs {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: k, ConfigValue: v})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if stderrors.Is(err, kafka.TopicAlreadyExists) {
			return nil
		}
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeMessagingError, "create topic failed").WithDetail(cfg.Name)
	}
	m.logger.Info("topic created", logging.String("topic", cfg.Name), logging.Int("partitions", cfg.NumPartitions))
	return nil
}

// TopicExists treats a metadata error as absence.
func (m *TopicManager) TopicExists(_ context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// ListTopics returns each topic once, in first-seen order.
func (m *TopicManager) ListTopics(_ context.Context) ([]string, error) {
	partitions, err := m.conn.ReadPartitions()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "read partitions failed")
	}
	seen := make(map[string]bool)
	var topics []string
	for _, p := range partitions {
		if !seen[p.Topic] {
			seen[p.Topic] = true
			topics = append(topics, p.Topic)
		}
	}
	return topics, nil
}

func (m *TopicManager) EnsureTopics(ctx context.Context, topics []common.TopicConfig) error {
	for _, t := range topics {
		if err := m.CreateTopic(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) Close() error { return m.conn.Close() }

const (
	day            = int64(24 * 3600 * 1000)
	jobRetention   = 7 * day
	eventRetention = 30 * day
	dlqRetention   = 30 * day
)

// TopicsFor lists the job topic, the event topic and their dead-letter
// topics as configured.
func TopicsFor(cfg config.KafkaConfig) []common.TopicConfig {
	parts, repl := cfg.NumPartitions, cfg.ReplicationFactor
	if parts <= 0 {
		parts = 1
	}
	if repl <= 0 {
		repl = 1
	}
	return []common.TopicConfig{
		{Name: cfg.JobTopic, NumPartitions: parts, ReplicationFactor: repl, RetentionMs: jobRetention},
		{Name: cfg.EventTopic, NumPartitions: parts, ReplicationFactor: repl, RetentionMs: eventRetention},
		{Name: DeadLetterTopicFor(cfg.JobTopic), NumPartitions: 1, ReplicationFactor: repl, RetentionMs: dlqRetention},
		{Name: DeadLetterTopicFor(cfg.EventTopic), NumPartitions: 1, ReplicationFactor: repl, RetentionMs: dlqRetention},
	}
}

// SecurityFrom extracts the authentication settings of cfg.
func SecurityFrom(cfg config.KafkaConfig) SecurityConfig {
	return SecurityConfig{
		SASLMechanism: cfg.SASLMechanism,
		SASLUsername:  cfg.SASLUsername,
		SASLPassword:  cfg.SASLPassword,
		TLSEnabled:    cfg.TLSEnabled,
		TLSCAPath:     cfg.TLSCAPath,
	}
}

// ProducerConfigFrom maps the kafka section onto a producer config.
func ProducerConfigFrom(cfg config.KafkaConfig) ProducerConfig {
	return ProducerConfig{
		Brokers:  cfg.Brokers,
		Acks:     "all",
		Security: SecurityFrom(cfg),
	}
}

// ConsumerConfigFrom builds the worker's job consumer.  Handler retries and
// concurrency come from the worker section.
func ConsumerConfigFrom(cfg config.KafkaConfig, w config.WorkerConfig) ConsumerConfig {
	return ConsumerConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topics:          []string{cfg.JobTopic},
		AutoOffsetReset: cfg.AutoOffsetReset,
		Concurrency:     w.Concurrency,
		Security:        SecurityFrom(cfg),
		RetryConfig: RetryConfig{
			MaxRetries:   w.MaxRetries,
			RetryBackoff: w.RetryBackoff,
		},
	}
}

//Personal.AI order the ending
