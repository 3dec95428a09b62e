package config

import "time"

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8000

	DefaultComputeURL     = "http://localhost:6500/"
	DefaultComputeTimeout = 5 * time.Minute
	DefaultComputeRetries = 2
	DefaultCacheTTL       = 10 * time.Minute

	DefaultSimulationMode = ModeMock
	DefaultArtifactDir    = "./artifacts"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "massing_sim"
	DefaultDBMaxConns = 10
	DefaultMigrations = "file://migrations"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "msim:"

	DefaultKafkaBroker     = "localhost:9092"
	DefaultKafkaGroupID    = "msim-worker"
	DefaultKafkaJobTopic   = "simulation.job.requested"
	DefaultKafkaEventTopic = "simulation.run.completed"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "msim-artifacts"

	DefaultWorkerConcurrency = 4
	DefaultWorkerHealthPort  = 8081

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "msim"
)

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default.
// Explicitly set values are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// Server
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// covers a full compute round trip
		cfg.Server.WriteTimeout = DefaultComputeTimeout + 30*time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 10 << 20
	}
	if cfg.Server.RateLimit.RPS == 0 {
		cfg.Server.RateLimit.RPS = 10
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = 20
	}

	// Compute
	if cfg.Compute.URL == "" {
		cfg.Compute.URL = DefaultComputeURL
	}
	if cfg.Compute.Timeout == 0 {
		cfg.Compute.Timeout = DefaultComputeTimeout
	}
	if cfg.Compute.MaxRetries == 0 {
		cfg.Compute.MaxRetries = DefaultComputeRetries
	}
	if cfg.Compute.RetryWaitMin == 0 {
		cfg.Compute.RetryWaitMin = 500 * time.Millisecond
	}
	if cfg.Compute.RetryWaitMax == 0 {
		cfg.Compute.RetryWaitMax = 5 * time.Second
	}
	if cfg.Compute.AppDir == "" {
		cfg.Compute.AppDir = "."
	}
	if cfg.Compute.CacheTTL == 0 {
		cfg.Compute.CacheTTL = DefaultCacheTTL
	}

	// Simulation
	if cfg.Simulation.Mode == "" {
		cfg.Simulation.Mode = DefaultSimulationMode
	}
	if cfg.Simulation.ArtifactDir == "" {
		cfg.Simulation.ArtifactDir = DefaultArtifactDir
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30 * time.Minute
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultMigrations
	}

	// Redis. DB 0 is both a valid value and the default.
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}

	// Kafka
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.JobTopic == "" {
		cfg.Kafka.JobTopic = DefaultKafkaJobTopic
	}
	if cfg.Kafka.EventTopic == "" {
		cfg.Kafka.EventTopic = DefaultKafkaEventTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.NumPartitions == 0 {
		cfg.Kafka.NumPartitions = 3
	}
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = 1
	}

	// MinIO
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = time.Hour
	}

	// Worker
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = time.Second
	}
	if cfg.Worker.LockTTL == 0 {
		cfg.Worker.LockTTL = DefaultComputeTimeout + time.Minute
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// Metrics
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

//Personal.AI order the ending
