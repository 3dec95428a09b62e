// Package config defines the configuration structures of the Massing-Sim
// gateway.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
)

// Evaluation modes of the simulation facade.
const (
	ModeMock    = "mock"
	ModeCompute = "compute"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64           `mapstructure:"max_body_size"`
	APIKeys         []string        `mapstructure:"api_keys"`
	CORSOrigins     []string        `mapstructure:"cors_origins"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// ComputeConfig points at the Rhino Compute server and the definition files.
type ComputeConfig struct {
	URL          string        `mapstructure:"url"`
	APIKey       string        `mapstructure:"api_key"`
	AuthToken    string        `mapstructure:"auth_token"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	AppDir       string        `mapstructure:"app_dir"`
	CatalogPath  string        `mapstructure:"catalog_path"`
	CacheEnabled bool          `mapstructure:"cache_enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	// PointerHosts are the hosts a caller may name by http(s) URL instead of
	// a definition file.  Empty disables URL definitions.
	PointerHosts []string `mapstructure:"pointer_hosts"`
}

// SimulationConfig controls how the facade produces results.
type SimulationConfig struct {
	Mode             string `mapstructure:"mode"` // "mock" | "compute"
	ArtifactDir      string `mapstructure:"artifact_dir"`
	KeepArtifacts    bool   `mapstructure:"keep_artifacts"`
	ArchiveArtifacts bool   `mapstructure:"archive_artifacts"`
	AsyncEnabled     bool   `mapstructure:"async_enabled"`
}

// DatabaseConfig holds PostgreSQL connection parameters for run history.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN renders a postgres:// URL for pgx and golang-migrate.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka producer/consumer parameters.
type KafkaConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Brokers           []string `mapstructure:"brokers"`
	GroupID           string   `mapstructure:"group_id"`
	JobTopic          string   `mapstructure:"job_topic"`
	EventTopic        string   `mapstructure:"event_topic"`
	AutoOffsetReset   string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	AutoCreateTopics  bool     `mapstructure:"auto_create_topics"`
	NumPartitions     int      `mapstructure:"num_partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
	SASLMechanism     string   `mapstructure:"sasl_mechanism"` // "", PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	SASLUsername      string   `mapstructure:"sasl_username"`
	SASLPassword      string   `mapstructure:"sasl_password"`
	TLSEnabled        bool     `mapstructure:"tls_enabled"`
	TLSCAPath         string   `mapstructure:"tls_ca_path"`
}

// MinIOConfig holds the heatmap archive parameters.
type MinIOConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	// RetentionDays expires archived heatmaps; 0 keeps them forever.
	RetentionDays int           `mapstructure:"retention_days"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	HealthPort   int           `mapstructure:"health_port"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Compute    ComputeConfig     `mapstructure:"compute"`
	Simulation SimulationConfig  `mapstructure:"simulation"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	MinIO      MinIOConfig       `mapstructure:"minio"`
	Worker     WorkerConfig      `mapstructure:"worker"`
	Log        logging.LogConfig `mapstructure:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RPS <= 0 || c.Server.RateLimit.Burst < 1) {
		return fmt.Errorf("config: server.rate_limit needs rps > 0 and burst >= 1")
	}

	u, err := url.Parse(c.Compute.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: compute.url %q must be an absolute http(s) URL", c.Compute.URL)
	}
	if c.Compute.Timeout <= 0 {
		return fmt.Errorf("config: compute.timeout must be positive")
	}
	if c.Compute.MaxRetries < 0 {
		return fmt.Errorf("config: compute.max_retries must be >= 0, got %d", c.Compute.MaxRetries)
	}
	if c.Compute.CacheEnabled && !c.Redis.Enabled {
		return fmt.Errorf("config: compute.cache_enabled requires redis.enabled")
	}

	switch c.Simulation.Mode {
	case ModeMock, ModeCompute:
	default:
		return fmt.Errorf("config: simulation.mode %q is invalid; expected mock|compute", c.Simulation.Mode)
	}
	if c.Simulation.Mode == ModeCompute && c.Simulation.ArtifactDir == "" {
		return fmt.Errorf("config: simulation.artifact_dir is required in compute mode")
	}
	if c.Simulation.AsyncEnabled && !c.Kafka.Enabled {
		return fmt.Errorf("config: simulation.async_enabled requires kafka.enabled")
	}
	if c.Simulation.ArchiveArtifacts && !c.MinIO.Enabled {
		return fmt.Errorf("config: simulation.archive_artifacts requires minio.enabled")
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
		if c.Kafka.JobTopic == "" || c.Kafka.EventTopic == "" {
			return fmt.Errorf("config: kafka.job_topic and kafka.event_topic are required")
		}
	}

	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required")
		}
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

//Personal.AI order the ending
