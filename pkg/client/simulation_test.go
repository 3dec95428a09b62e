package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

func writeTestJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_StatusAndHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/":
			writeTestJSON(w, http.StatusOK, types.ServiceStatus{Status: "running", Message: "Simulation Service is Ready"})
		case "/healthz":
			writeTestJSON(w, http.StatusOK, Liveness{Status: "up", Version: "1.2.0", Uptime: "3s"})
		case "/readyz":
			_, _ = w.Write([]byte(`{"status":"degraded","components":[{"name":"redis","status":"down"}],"checked_at":"2026-01-02T03:04:05Z"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "running", status.Status)

	live, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", live.Version)

	report, err := c.Readiness(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, "degraded", report.Status)
	require.Len(t, report.Components, 1)
	assert.Equal(t, "redis", report.Components[0].Name)
}

func TestClient_ReadinessDownIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"down"}`))
	})

	_, err := c.Readiness(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_GenerateMassing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/massing/generate", r.URL.Path)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 2, body["index"])
		assert.EqualValues(t, 1200, body["building_area"])
		assert.Nil(t, body["plot_ratio"])
		writeTestJSON(w, http.StatusOK, types.MassingToolOutput{GeometryData: "Mock_Geometry_Data_2", Status: types.StatusCompleted})
	})
	area := 1200.0

	out, err := c.GenerateMassing(context.Background(), types.MassingToolInput{Index: 2, BuildingArea: &area})

	require.NoError(t, err)
	assert.Equal(t, "Mock_Geometry_Data_2", out.GeometryData)
	assert.Equal(t, types.StatusCompleted, out.Status)
}

func TestClient_Simulate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sim/wind", r.URL.Path)
		var in types.SimulationInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "geom", in.MassingData)
		writeTestJSON(w, http.StatusOK, types.SimulationToolOutput{
			IsSuccess: true,
			Metrics:   map[string]float64{"max_wind_speed": 12.5},
		})
	})

	out, err := c.Simulate(context.Background(), " Wind ", types.SimulationInput{MassingData: "geom"})

	require.NoError(t, err)
	assert.True(t, out.IsSuccess)
	assert.Equal(t, 12.5, out.Metrics["max_wind_speed"])
}

func TestClient_SimulateInvalidKind(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	for _, kind := range []string{"", "  ", "wind/jobs", "x?y"} {
		_, err := c.Simulate(context.Background(), kind, types.SimulationInput{})
		assert.Error(t, err, kind)
		_, err = c.SubmitSimulation(context.Background(), kind, types.SimulationInput{})
		assert.Error(t, err, kind)
	}
}

func TestClient_SubmitSimulationNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sim/thermal/jobs", r.URL.Path)
		if atomic.AddInt32(&calls, 1) == 1 {
			writeTestJSON(w, http.StatusServiceUnavailable, map[string]string{"code": "SIM_006", "message": "async simulation is disabled"})
			return
		}
		writeTestJSON(w, http.StatusAccepted, types.SubmitResponse{RunID: "r1", Status: "pending"})
	})

	_, err := c.SubmitSimulation(context.Background(), "thermal", types.SimulationInput{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "SIM_006", apiErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	out, err := c.SubmitSimulation(context.Background(), "thermal", types.SimulationInput{})
	require.NoError(t, err)
	assert.Equal(t, "r1", out.RunID)
	assert.Equal(t, "pending", out.Status)
}

func TestClient_GetRun(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sim/runs/8c1e", r.URL.Path)
		writeTestJSON(w, http.StatusOK, types.RunResponse{ID: "8c1e", Kind: "sunlight", Status: "succeeded", CreatedAt: created})
	})

	run, err := c.GetRun(context.Background(), "8c1e")
	require.NoError(t, err)
	assert.Equal(t, "sunlight", run.Kind)
	assert.True(t, created.Equal(run.CreatedAt))

	_, err = c.GetRun(context.Background(), " ")
	assert.Error(t, err)
}

func TestClient_ListRuns(t *testing.T) {
	tests := []struct {
		name  string
		req   types.ListRunsRequest
		query string
	}{
		{"no filters", types.ListRunsRequest{}, ""},
		{"all filters", types.ListRunsRequest{Kind: "wind", Status: "failed", Limit: 10, Offset: 20}, "kind=wind&limit=10&offset=20&status=failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/sim/runs", r.URL.Path)
				assert.Equal(t, tt.query, r.URL.RawQuery)
				writeTestJSON(w, http.StatusOK, types.ListRunsResponse{
					Items: []types.RunResponse{{ID: "a"}, {ID: "b"}},
					Total: 5,
					Limit: 2,
				})
			})

			page, err := c.ListRuns(context.Background(), tt.req)

			require.NoError(t, err)
			assert.Len(t, page.Items, 2)
			assert.True(t, page.HasMore())
		})
	}
}

func TestClient_Evaluate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/compute/evaluate", r.URL.Path)
		var req types.EvaluateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "wind", req.Definition)
		assert.EqualValues(t, 3, req.Params["floors"])
		writeTestJSON(w, http.StatusOK, types.EvaluateResponse{
			Definition: "wind",
			Values:     json.RawMessage(`{"speed":[1.5]}`),
			DurationMs: 42,
		})
	})

	out, err := c.Evaluate(context.Background(), types.EvaluateRequest{Definition: "wind", Params: map[string]interface{}{"floors": 3}})

	require.NoError(t, err)
	assert.JSONEq(t, `{"speed":[1.5]}`, string(out.Values))
	assert.Equal(t, int64(42), out.DurationMs)
}

func TestClient_ComputeHealth(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			writeTestJSON(w, http.StatusOK, types.ComputeHealthResponse{Status: "up", Mode: "compute", Definitions: []string{"wind"}})
			return
		}
		writeTestJSON(w, http.StatusServiceUnavailable, types.ComputeHealthResponse{Status: "down", Mode: "compute"})
	})

	h, err := c.ComputeHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"wind"}, h.Definitions)

	_, err = c.ComputeHealth(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

//Personal.AI order the ending
