package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/Massing-Sim/pkg/types/common"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

// readinessTimeout bounds all dependency checks of one /readyz call.
const readinessTimeout = 5 * time.Second

// HealthChecker is a dependency that can report its health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

type checkerFunc struct {
	name  string
	check func(ctx context.Context) error
}

func (c checkerFunc) Name() string                    { return c.name }
func (c checkerFunc) Check(ctx context.Context) error { return c.check(ctx) }

// NewChecker adapts a ping function, such as a pool's HealthCheck, into a
// HealthChecker.
func NewChecker(name string, check func(ctx context.Context) error) HealthChecker {
	return checkerFunc{name: name, check: check}
}

// HealthRecorder mirrors component health into metrics.
type HealthRecorder interface {
	SetComponentHealth(component string, up bool)
}

// HealthHandler handles the service status and probe endpoints.
type HealthHandler struct {
	checkers []HealthChecker
	recorder HealthRecorder
	version  string
	startAt  time.Time
}

func NewHealthHandler(version string, recorder HealthRecorder, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		recorder: recorder,
		version:  version,
		startAt:  time.Now(),
	}
}

// LivenessResponse is the /healthz body.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Root handles GET /.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ServiceStatus{Status: "running", Message: "Simulation Service is Ready"})
}

// Liveness handles GET /healthz.  It answers 200 while the process runs.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  string(common.HealthUp),
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz: 200 unless a dependency is down.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	report := h.Report(ctx)
	status := http.StatusOK
	if report.Status == common.HealthDown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Report runs every checker concurrently.
func (h *HealthHandler) Report(ctx context.Context) common.HealthReport {
	components := make([]common.ComponentHealth, 0, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			ch := common.ComponentHealth{
				Name:      c.Name(),
				Status:    common.HealthUp,
				LatencyMs: time.Since(start).Milliseconds(),
			}
			if err != nil {
				ch.Status = common.HealthDown
				ch.Message = err.Error()
			}
			if h.recorder != nil {
				h.recorder.SetComponentHealth(ch.Name, err == nil)
			}

			mu.Lock()
			components = append(components, ch)
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })
	return common.HealthReport{
		Status:     common.Overall(components),
		Components: components,
		CheckedAt:  time.Now().UTC(),
	}
}

//Personal.AI order the ending
