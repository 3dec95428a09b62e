// API server entry point for Massing-Sim.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/Massing-Sim/internal/application/evaluation"
	"github.com/turtacn/Massing-Sim/internal/application/massing"
	"github.com/turtacn/Massing-Sim/internal/application/simulation"
	"github.com/turtacn/Massing-Sim/internal/compute/definition"
	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/internal/infrastructure"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/Massing-Sim/internal/interfaces/http"
	"github.com/turtacn/Massing-Sim/internal/interfaces/http/handlers"
	"github.com/turtacn/Massing-Sim/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var version = "dev"

const startupTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: MSIM_* environment only)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logging.Sync(logger) }()

	logger.Info("starting Massing-Sim API server",
		logging.String("version", version),
		logging.String("mode", cfg.Simulation.Mode),
		logging.Int("port", cfg.Server.Port))

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
	inf, err := infrastructure.Open(startCtx, cfg, "apiserver", logger, metrics)
	cancel()
	if err != nil {
		return err
	}
	defer inf.Close()

	catalog, err := definition.LoadCatalog(cfg.Compute.CatalogPath)
	if err != nil {
		return err
	}
	rc, shared, err := computeClients(cfg, inf, logger, metrics)
	if err != nil {
		return err
	}
	defer rc.Close()

	simSvc := simulation.NewService(simulation.OptionsFrom(cfg), simulation.Deps{
		Client:    rc,
		Catalog:   catalog,
		Runs:      inf.Runs,
		Artifacts: inf.Artifacts,
		Events:    inf.Events,
		Recorder:  metrics,
		Logger:    logger,
	})
	massingSvc := massing.NewService(cfg.Simulation.Mode, shared, catalog, logger)
	evalSvc := evaluation.NewService(cfg.Simulation.Mode, shared, catalog, logger)

	maxBody := cfg.Server.MaxBodySize
	routerCfg := httpserver.RouterConfig{
		HealthHandler:     handlers.NewHealthHandler(version, metrics, healthCheckers(cfg, inf, rc)...),
		MassingHandler:    handlers.NewMassingHandler(massingSvc, logger, maxBody),
		SimulationHandler: handlers.NewSimulationHandler(simSvc, logger, maxBody),
		ComputeHandler:    handlers.NewComputeHandler(evalSvc, logger, maxBody),
		Auth: middleware.NewAPIKeyAuth(middleware.AuthConfig{
			Keys: cfg.Server.APIKeys,
		}, logger),
		Logging:      middleware.DefaultLoggingConfig(),
		Logger:       logger,
		HTTPRecorder: metrics,
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.CORSConfigFor(cfg.Server.CORSOrigins)
		routerCfg.CORS = &cors
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		rlCfg := middleware.DefaultRateLimitConfig()
		rlCfg.RequestsPerSecond = rl.RPS
		rlCfg.BurstSize = rl.Burst
		limiter := middleware.NewTokenBucketLimiter(rl.RPS, rl.Burst, rlCfg.CleanupInterval)
		defer limiter.Stop()
		routerCfg.RateLimiter = limiter
		routerCfg.RateLimitConfig = rlCfg
	}
	if collector != nil {
		routerCfg.MetricsHandler = collector.Handler()
	}

	if configPath != "" {
		err := config.Watch(configPath, func(next *config.Config) {
			if err := logging.SetLevel(logger, next.Log.Level); err != nil {
				logger.Warn("log level reload failed", logging.Err(err))
				return
			}
			logger.Info("configuration reloaded", logging.String("log_level", next.Log.Level))
		}, func(err error) {
			logger.Warn("ignoring invalid configuration change", logging.Err(err))
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("Massing-Sim API server stopped")
	return nil
}

//Personal.AI order the ending
