// Package simulation holds the request and response bodies shared by the HTTP
// API, the CLI and the Go SDK.
package simulation

import (
	"encoding/json"
	"time"

	"github.com/turtacn/Massing-Sim/pkg/types/common"
)

// Massing result states.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Field defaults applied when a massing request omits them.
const (
	DefaultFloorCount = 5
	DefaultPlotRatio  = 2.0

	// FallbackPlotRatio replaces an explicit null plot_ratio.
	FallbackPlotRatio = 2.5
)

// MassingToolInput asks for a building massing scheme.
type MassingToolInput struct {
	Index        int      `json:"index" validate:"gte=0"`
	BuildingArea *float64 `json:"building_area" validate:"omitempty,gt=0"`
	FloorCount   *int     `json:"floor_count" validate:"omitempty,gte=0"`
	PlotRatio    *float64 `json:"plot_ratio" validate:"omitempty,gte=0"`
}

// UnmarshalJSON applies field defaults for omitted keys.  A key sent as null
// stays nil so the service can apply its own fallback.
func (in *MassingToolInput) UnmarshalJSON(data []byte) error {
	type plain MassingToolInput
	floors, ratio := DefaultFloorCount, DefaultPlotRatio
	p := plain{FloorCount: &floors, PlotRatio: &ratio}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*in = MassingToolInput(p)
	return nil
}

// Floors returns FloorCount or its fallback.
func (in *MassingToolInput) Floors() int {
	if in.FloorCount == nil {
		return DefaultFloorCount
	}
	return *in.FloorCount
}

// Ratio returns PlotRatio or its fallback.
func (in *MassingToolInput) Ratio() float64 {
	if in.PlotRatio == nil {
		return FallbackPlotRatio
	}
	return *in.PlotRatio
}

type MassingToolOutput struct {
	GeometryData string `json:"geometry_data"`
	Description  string `json:"description"`
	Status       string `json:"status"`
}

// SimulationInput is the body of every simulation endpoint.  SimType is
// informational; the route decides the kind.
type SimulationInput struct {
	MassingData string `json:"massing_data"`
	ContextData string `json:"context_data"`
	SimType     string `json:"sim_type"`
}

// SimulationToolOutput carries a heatmap as base64 PNG plus named metrics.
type SimulationToolOutput struct {
	IsSuccess    bool               `json:"is_success"`
	HeatmapImage string             `json:"heatmap_image"`
	Metrics      map[string]float64 `json:"metrics"`
	Summary      string             `json:"summary"`
}

// SubmitResponse acknowledges an asynchronous simulation.
type SubmitResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// RunResponse describes a stored run.
type RunResponse struct {
	ID          string             `json:"id"`
	Kind        string             `json:"kind"`
	Mode        string             `json:"mode"`
	Status      string             `json:"status"`
	IsSuccess   bool               `json:"is_success"`
	Metrics     map[string]float64 `json:"metrics"`
	Summary     string             `json:"summary"`
	ArtifactURL string             `json:"artifact_url,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`
	DurationMs  int64              `json:"duration_ms"`
}

// ListRunsRequest is decoded from query parameters.
type ListRunsRequest struct {
	Kind   string `json:"kind,omitempty" validate:"omitempty,oneof=wind sunlight thermal"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=pending running succeeded failed"`
	Limit  int    `json:"limit,omitempty" validate:"gte=0"`
	Offset int    `json:"offset,omitempty" validate:"gte=0"`
}

type ListRunsResponse = common.PageResponse[RunResponse]

// EvaluateRequest runs any catalog or file definition with raw parameters.
// Param values are scalars or lists of scalars.  Params is a JSON object, so
// the order the caller wrote the keys in is not kept: inputs reach the engine
// sorted by name.  Definitions match inputs by name, never by position.
//
// Definition is a catalog name or a .gh file name relative to the server's
// definition directories.  Absolute paths and names containing ".." are
// rejected; http(s) URLs are accepted only for compute.pointer_hosts.
type EvaluateRequest struct {
	Definition string                 `json:"definition" validate:"required"`
	Params     map[string]interface{} `json:"params"`
}

// EvaluateResponse maps each output name to its flattened values.
type EvaluateResponse struct {
	Definition string          `json:"definition"`
	Values     json.RawMessage `json:"values"`
	DurationMs int64           `json:"duration_ms"`
}

// ComputeHealthResponse reports whether Rhino Compute answers.
type ComputeHealthResponse struct {
	Status      string   `json:"status"`
	Mode        string   `json:"mode"`
	Message     string   `json:"message,omitempty"`
	Definitions []string `json:"definitions"`
}

// ServiceStatus is the body of GET /.
type ServiceStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

//Personal.AI order the ending
