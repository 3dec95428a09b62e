package main

import (
	"context"

	"github.com/turtacn/Massing-Sim/internal/compute/definition"
	"github.com/turtacn/Massing-Sim/internal/compute/rhino"
	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/internal/infrastructure"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Massing-Sim/internal/interfaces/http/handlers"
)

// computeClients returns the raw Rhino client and the client massing and
// evaluation go through.  The second one is memoised in redis when the
// evaluation cache is on; simulations write files and always use the first.
func computeClients(cfg *config.Config, inf *infrastructure.Infra, logger logging.Logger, metrics *prometheus.AppMetrics) (*rhino.HTTPClient, rhino.Client, error) {
	cc := cfg.Compute
	rc, err := rhino.NewHTTPClient(rhino.ConfigFrom(cc), resolverFor(cc),
		logger.Named("rhino"), rhino.WithRecorder(metrics))
	if err != nil {
		return nil, nil, err
	}
	if cc.CacheEnabled && inf.Cache != nil {
		return rc, rhino.NewCachedClient(rc, inf.Cache, cc.CacheTTL, logger.Named("rhino"), metrics), nil
	}
	return rc, rc, nil
}

// resolverFor keeps request-supplied names inside the definition
// directories; URLs are accepted only for the configured hosts.
func resolverFor(cc config.ComputeConfig) *definition.Resolver {
	return definition.NewDefaultResolver(cc.AppDir).WithPolicy(definition.Policy{PointerHosts: cc.PointerHosts})
}

// healthCheckers adapts the infrastructure probes to readiness checkers.
// Compute is probed only in compute mode, where the gateway cannot serve
// without it.
func healthCheckers(cfg *config.Config, inf *infrastructure.Infra, rc rhino.Client) []handlers.HealthChecker {
	var out []handlers.HealthChecker
	if cfg.Simulation.Mode == config.ModeCompute {
		out = append(out, handlers.NewChecker("compute", func(ctx context.Context) error {
			return rc.Healthy(ctx)
		}))
	}
	for _, c := range inf.Checks() {
		out = append(out, handlers.NewChecker(c.Name, c.Fn))
	}
	return out
}

//Personal.AI order the ending
