// Background worker entry point for Massing-Sim.  It consumes simulation
// jobs from Kafka, runs them against Rhino Compute and records the outcome.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/Massing-Sim/internal/application/simulation"
	"github.com/turtacn/Massing-Sim/internal/compute/definition"
	"github.com/turtacn/Massing-Sim/internal/compute/rhino"
	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/internal/infrastructure"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Massing-Sim/internal/interfaces/http/handlers"
	"github.com/turtacn/Massing-Sim/internal/interfaces/worker"
)

// Build-time variables injected via ldflags.
var version = "dev"

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: MSIM_* environment only)")
	workers := flag.Int("workers", 0, "number of concurrent jobs (overrides worker.concurrency)")
	flag.Parse()

	if err := run(*configPath, *workers); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, workers int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Worker.Concurrency = workers
	}
	if !cfg.Kafka.Enabled {
		return errors.New("kafka.enabled must be set for the worker")
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logging.Sync(logger) }()

	hostname, _ := os.Hostname()
	logger = logger.With(logging.String("worker", hostname))
	logger.Info("starting Massing-Sim worker",
		logging.String("version", version),
		logging.String("mode", cfg.Simulation.Mode),
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.String("topic", cfg.Kafka.JobTopic))

	var metrics *prometheus.AppMetrics
	var collector prometheus.MetricsCollector
	if cfg.Metrics.Enabled {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		metrics = prometheus.NewAppMetrics(collector)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	inf, err := infrastructure.Open(startCtx, cfg, "worker", logger, metrics)
	cancel()
	if err != nil {
		return err
	}
	defer inf.Close()

	catalog, err := definition.LoadCatalog(cfg.Compute.CatalogPath)
	if err != nil {
		return err
	}
	resolver := definition.NewDefaultResolver(cfg.Compute.AppDir).
		WithPolicy(definition.Policy{PointerHosts: cfg.Compute.PointerHosts})
	rc, err := rhino.NewHTTPClient(rhino.ConfigFrom(cfg.Compute), resolver, logger.Named("rhino"), rhino.WithRecorder(metrics))
	if err != nil {
		return err
	}
	defer rc.Close()

	svc := simulation.NewService(simulation.OptionsFrom(cfg), simulation.Deps{
		Client:    rc,
		Catalog:   catalog,
		Runs:      inf.Runs,
		Artifacts: inf.Artifacts,
		Events:    inf.Events,
		Recorder:  metrics,
		Logger:    logger,
	})

	opts := []worker.Option{worker.WithName(hostname), worker.WithTracker(metrics)}
	if inf.Locks != nil {
		opts = append(opts, worker.WithLocks(inf.Locks, cfg.Worker.LockTTL))
	} else {
		logger.Warn("redis disabled, runs are not claimed before execution")
	}
	handler := worker.NewHandler(svc, logger, opts...)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(cfg.Kafka, cfg.Worker), logger, inf.Producer, metrics)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.Subscribe(cfg.Kafka.JobTopic, handler.Handle)

	healthSrv := newHealthServer(cfg, inf, collector)
	go func() {
		logger.Info("health server listening", logging.String("addr", healthSrv.Addr))
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", logging.Err(err))
		}
	}()

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	logger.Info("shutdown signal received, draining in-flight jobs")

	// Close waits for the handlers that are still running.
	if err := consumer.Close(); err != nil {
		logger.Error("kafka consumer close failed", logging.Err(err))
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", logging.Err(err))
	}

	stats := consumer.Stats()
	logger.Info("Massing-Sim worker stopped",
		logging.Int64("processed", stats.Processed),
		logging.Int64("failed", stats.Failed),
		logging.Int64("dead_lettered", stats.DeadLettered))
	return nil
}

// newHealthServer exposes /healthz, /readyz and the scrape endpoint for
// the orchestrator.
func newHealthServer(cfg *config.Config, inf *infrastructure.Infra, collector prometheus.MetricsCollector) *http.Server {
	var checkers []handlers.HealthChecker
	for _, c := range inf.Checks() {
		checkers = append(checkers, handlers.NewChecker(c.Name, c.Fn))
	}
	health := handlers.NewHealthHandler(version, nil, checkers...)

	r := chi.NewRouter()
	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)
	if collector != nil {
		r.Method(http.MethodGet, "/metrics", collector.Handler())
	}
	return &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Worker.HealthPort)),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

//Personal.AI order the ending
