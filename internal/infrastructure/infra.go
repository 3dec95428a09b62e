// Package infrastructure opens the optional backing services named in the
// config and hands them to the application layer as its ports.  Every
// service is skipped when its section is disabled.
package infrastructure

import (
	"context"
	"fmt"

	"github.com/turtacn/Massing-Sim/internal/config"
	domain "github.com/turtacn/Massing-Sim/internal/domain/simulation"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/database/postgres"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/database/redis"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/storage/minio"
)

// Check is one named dependency probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Infra holds the opened clients and the adapters built on them.  Adapter
// fields stay nil when their backing service is disabled.
type Infra struct {
	Postgres *postgres.Connection
	Redis    *redis.Client
	MinIO    *minio.Client
	Producer *kafka.Producer

	Runs      domain.RunRepository
	Artifacts domain.ArtifactStore
	Events    domain.EventPublisher
	Cache     redis.Cache
	Locks     redis.LockFactory

	logger logging.Logger
}

// Open connects every enabled service.  On failure the services opened so
// far are closed.  source names the process in published events.
func Open(ctx context.Context, cfg *config.Config, source string, logger logging.Logger, metrics *prometheus.AppMetrics) (*Infra, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	inf := &Infra{logger: logger}

	if cfg.Database.Enabled {
		if cfg.Database.AutoMigrate {
			if err := postgres.NewMigrator(cfg.Database, logger).Up(); err != nil {
				return nil, fmt.Errorf("postgres migrate: %w", err)
			}
		}
		conn, err := postgres.NewConnection(ctx, cfg.Database, logger.Named("postgres"))
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		inf.Postgres = conn
		inf.Runs = repositories.NewSimulationRunRepository(conn.Pool(), logger, metrics)
	}

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			inf.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		inf.Redis = rc
		inf.Cache = redis.NewRedisCache(rc, logger, redis.WithNamespace("compute"), redis.WithDefaultTTL(cfg.Compute.CacheTTL))
		inf.Locks = redis.NewLockFactory(rc, logger)
	}

	if cfg.MinIO.Enabled {
		mc, err := minio.NewClient(ctx, cfg.MinIO, logger)
		if err != nil {
			inf.Close()
			return nil, fmt.Errorf("minio: %w", err)
		}
		inf.MinIO = mc
		inf.Artifacts = minio.NewArtifactRepository(mc, logger, metrics)
	}

	if cfg.Kafka.Enabled {
		if cfg.Kafka.AutoCreateTopics {
			if err := ensureTopics(ctx, cfg.Kafka, logger); err != nil {
				inf.Close()
				return nil, err
			}
		}
		p, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger, metrics)
		if err != nil {
			inf.Close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		inf.Producer = p
		inf.Events = kafka.NewSimulationEvents(p, cfg.Kafka.JobTopic, cfg.Kafka.EventTopic, source)
	}

	logger.Info("infrastructure ready",
		logging.Bool("postgres", inf.Postgres != nil),
		logging.Bool("redis", inf.Redis != nil),
		logging.Bool("minio", inf.MinIO != nil),
		logging.Bool("kafka", inf.Producer != nil))
	return inf, nil
}

func ensureTopics(ctx context.Context, cfg config.KafkaConfig, logger logging.Logger) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}
	tm, err := kafka.NewTopicManager(ctx, cfg.Brokers, kafka.SecurityFrom(cfg), logger)
	if err != nil {
		return fmt.Errorf("kafka topics: %w", err)
	}
	defer tm.Close()
	if err := tm.EnsureTopics(ctx, kafka.TopicsFor(cfg)); err != nil {
		return fmt.Errorf("kafka topics: %w", err)
	}
	return nil
}

// Checks lists a probe per opened service, in a fixed order.
func (i *Infra) Checks() []Check {
	var out []Check
	if i.Postgres != nil {
		out = append(out, Check{Name: "postgres", Fn: i.Postgres.HealthCheck})
	}
	if i.Redis != nil {
		out = append(out, Check{Name: "redis", Fn: i.Redis.Ping})
	}
	if i.MinIO != nil {
		out = append(out, Check{Name: "minio", Fn: i.MinIO.HealthCheck})
	}
	return out
}

// Close releases every opened service.  It is safe on a partly opened Infra.
func (i *Infra) Close() {
	if i.Producer != nil {
		if err := i.Producer.Close(); err != nil {
			i.logger.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if i.MinIO != nil {
		_ = i.MinIO.Close()
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.logger.Warn("redis close failed", logging.Err(err))
		}
	}
	if i.Postgres != nil {
		i.Postgres.Close()
	}
}

//Personal.AI order the ending
