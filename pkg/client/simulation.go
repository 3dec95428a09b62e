package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/turtacn/Massing-Sim/pkg/types/common"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

// Liveness is the /healthz body.
type Liveness struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Status calls GET /.
func (c *Client) Status(ctx context.Context) (*types.ServiceStatus, error) {
	var out types.ServiceStatus
	if err := c.get(ctx, "/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health calls GET /healthz.
func (c *Client) Health(ctx context.Context) (*Liveness, error) {
	var out Liveness
	if err := c.get(ctx, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readiness calls GET /readyz.  A down dependency surfaces as an *APIError
// with status 503 whose Message holds the raw report.
func (c *Client) Readiness(ctx context.Context) (*common.HealthReport, error) {
	var out common.HealthReport
	err := c.do(ctx, request{method: http.MethodGet, path: "/readyz", noRetry: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateMassing calls POST /api/massing/generate.  A nil PlotRatio is sent
// as null and gets the server's null fallback rather than the omitted-field
// default.
func (c *Client) GenerateMassing(ctx context.Context, in types.MassingToolInput) (*types.MassingToolOutput, error) {
	var out types.MassingToolOutput
	if err := c.post(ctx, "/api/massing/generate", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Simulate runs a simulation synchronously.  kind is wind, sunlight or
// thermal.
func (c *Client) Simulate(ctx context.Context, kind string, in types.SimulationInput) (*types.SimulationToolOutput, error) {
	kind, err := pathKind(kind)
	if err != nil {
		return nil, err
	}
	var out types.SimulationToolOutput
	if err := c.post(ctx, "/api/sim/"+kind, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitSimulation queues a simulation.  It is never retried so a flaky
// network cannot queue the same work twice.
func (c *Client) SubmitSimulation(ctx context.Context, kind string, in types.SimulationInput) (*types.SubmitResponse, error) {
	kind, err := pathKind(kind)
	if err != nil {
		return nil, err
	}
	var out types.SubmitResponse
	req := request{method: http.MethodPost, path: "/api/sim/" + kind + "/jobs", body: in, noRetry: true}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRun fetches one stored run.
func (c *Client) GetRun(ctx context.Context, id string) (*types.RunResponse, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("run id is required")
	}
	var out types.RunResponse
	if err := c.get(ctx, "/api/sim/runs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRuns pages through stored runs, newest first.
func (c *Client) ListRuns(ctx context.Context, req types.ListRunsRequest) (*types.ListRunsResponse, error) {
	q := url.Values{}
	if req.Kind != "" {
		q.Set("kind", req.Kind)
	}
	if req.Status != "" {
		q.Set("status", req.Status)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}
	var out types.ListRunsResponse
	if err := c.get(ctx, "/api/sim/runs", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Evaluate runs a Grasshopper definition with raw parameters.
func (c *Client) Evaluate(ctx context.Context, req types.EvaluateRequest) (*types.EvaluateResponse, error) {
	var out types.EvaluateResponse
	if err := c.post(ctx, "/api/compute/evaluate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ComputeHealth reports whether the server can reach Rhino Compute.  A 503
// means Compute is down and is not retried.
func (c *Client) ComputeHealth(ctx context.Context) (*types.ComputeHealthResponse, error) {
	var out types.ComputeHealthResponse
	req := request{method: http.MethodGet, path: "/api/compute/health", noRetry: true}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pathKind(kind string) (string, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" || strings.ContainsAny(kind, "/?#") {
		return "", fmt.Errorf("invalid simulation kind %q", kind)
	}
	return kind, nil
}

//Personal.AI order the ending
