package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Massing-Sim/internal/application/evaluation"
	"github.com/turtacn/Massing-Sim/internal/application/massing"
	"github.com/turtacn/Massing-Sim/internal/application/simulation"
	"github.com/turtacn/Massing-Sim/internal/compute/rhino"
	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/internal/interfaces/http/handlers"
	"github.com/turtacn/Massing-Sim/internal/interfaces/http/middleware"
	"github.com/turtacn/Massing-Sim/pkg/types/common"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

type routeRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (r *routeRecorder) RecordHTTPRequest(method, route string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, method+" "+route)
}

func newTestRouter(t *testing.T, mutate func(*RouterConfig)) http.Handler {
	t.Helper()
	client := rhino.NewMockClient()
	client.EvaluateFunc = rhino.EchoEvaluate
	cfg := RouterConfig{
		HealthHandler:     handlers.NewHealthHandler("test", nil),
		MassingHandler:    handlers.NewMassingHandler(massing.NewService(config.ModeMock, nil, nil, nil), nil, 0),
		SimulationHandler: handlers.NewSimulationHandler(simulation.NewService(simulation.Options{Mode: config.ModeMock}, simulation.Deps{}), nil, 0),
		ComputeHandler:    handlers.NewComputeHandler(evaluation.NewService(config.ModeCompute, client, nil, nil), nil, 0),
		Logging:           middleware.DefaultLoggingConfig(),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewRouter(cfg)
}

func do(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRouter_Root(t *testing.T) {
	w := do(newTestRouter(t, nil), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"running","message":"Simulation Service is Ready"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestRouter_MassingAndSimulation(t *testing.T) {
	h := newTestRouter(t, nil)

	w := do(h, http.MethodPost, "/api/massing/generate", `{"index":1,"floor_count":10,"plot_ratio":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"geometry_data":"{ 'type': 'Mesh', 'vertices': 40 }","description":"generated scheme, floors: 10, plot ratio: 2.5","status":"completed"}`, w.Body.String())

	tests := map[string]map[string]float64{
		"wind":     {"max_wind_speed": 5.4, "avg_wind_speed": 2.1},
		"sunlight": {"sunlight_hours": 4.5, "shadow_ratio": 0.3},
		"thermal":  {"avg_utci": 26.5, "comfort_hours": 12.0},
	}
	for kind, metrics := range tests {
		t.Run(kind, func(t *testing.T) {
			w := do(h, http.MethodPost, "/api/sim/"+kind, `{"massing_data":"{}","context_data":"","sim_type":"`+kind+`"}`)
			require.Equal(t, http.StatusOK, w.Code)
			var out types.SimulationToolOutput
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.True(t, out.IsSuccess)
			assert.Equal(t, simulation.PlaceholderPNG, out.HeatmapImage)
			assert.Equal(t, metrics, out.Metrics)
		})
	}

	w = do(h, http.MethodPost, "/api/sim/noise", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "unknown simulation type: noise")
}

func TestRouter_AsyncAndHistoryDisabled(t *testing.T) {
	h := newTestRouter(t, nil)

	w := do(h, http.MethodPost, "/api/sim/wind/jobs", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(h, http.MethodGet, "/api/sim/runs", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(h, http.MethodGet, "/api/sim/runs/abc", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_Compute(t *testing.T) {
	h := newTestRouter(t, nil)

	w := do(h, http.MethodPost, "/api/compute/evaluate", `{"definition":"playground.gh","params":{"n":2}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"values":{"n":[2]}`)

	w = do(h, http.MethodGet, "/api/compute/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"up"`)
}

func TestRouter_ProbesAndMetrics(t *testing.T) {
	h := newTestRouter(t, nil)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", "").Code)

	w := do(h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var report common.HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, common.HealthUp, report.Status)

	assert.Equal(t, "# metrics", do(h, http.MethodGet, "/metrics", "").Body.String())
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	h := newTestRouter(t, nil)

	w := do(h, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"COMMON_005"`)

	w = do(h, http.MethodGet, "/api/massing/generate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_AuthGuardsAPIOnly(t *testing.T) {
	h := newTestRouter(t, func(c *RouterConfig) {
		c.Auth = middleware.NewAPIKeyAuth(middleware.AuthConfig{Keys: []string{"secret"}}, nil)
	})

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, "/api/sim/wind", `{}`).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/sim/wind", `{}`, middleware.HeaderAPIKey, "secret").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/", "").Code)
}

func TestRouter_RateLimit(t *testing.T) {
	limiter := middleware.NewTokenBucketLimiter(0.001, 1, 0)
	h := newTestRouter(t, func(c *RouterConfig) {
		c.RateLimiter = limiter
		c.RateLimitConfig = middleware.DefaultRateLimitConfig()
	})

	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/sim/wind", `{}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodPost, "/api/sim/wind", `{}`).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", "").Code)
}

func TestRouter_CORSAndRecorder(t *testing.T) {
	rec := &routeRecorder{}
	h := newTestRouter(t, func(c *RouterConfig) {
		cors := middleware.CORSConfigFor([]string{"https://studio.example.com"})
		c.CORS = &cors
		c.HTTPRecorder = rec
	})

	w := do(h, http.MethodOptions, "/api/sim/wind", "", "Origin", "https://studio.example.com", "Access-Control-Request-Method", "POST")
	assert.Equal(t, http.StatusNoContent, w.Code)

	do(h, http.MethodGet, "/api/sim/runs/r-1", "")
	assert.Contains(t, rec.routes, "GET /api/sim/runs/{id}")
}

func TestRouter_NilHandlers(t *testing.T) {
	h := NewRouter(RouterConfig{})
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/api/sim/wind", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/metrics", "").Code)
}

//Personal.AI order the ending
