// Package simulation holds the run record shared by the synchronous API, the
// asynchronous worker and run history.
package simulation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind names an environmental simulation.
type Kind string

const (
	KindWind     Kind = "wind"
	KindSunlight Kind = "sunlight"
	KindThermal  Kind = "thermal"
)

var knownKinds = map[Kind]struct{}{KindWind: {}, KindSunlight: {}, KindThermal: {}}

// Kinds returns the supported kinds in lexical order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(knownKinds))
	for k := range knownKinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (k Kind) IsValid() bool {
	_, ok := knownKinds[k]
	return ok
}

func (k Kind) String() string { return string(k) }

// ParseKind is exact and case-sensitive, matching the HTTP routes.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown simulation type: %s", s)
	}
	return k, nil
}

// Status is the lifecycle state of a Run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool { return s == StatusSucceeded || s == StatusFailed }

// Input is the request payload a run was started with.
type Input struct {
	MassingData string `json:"massing_data"`
	ContextData string `json:"context_data"`
}

// Outcome is the result of executing a run, whatever the mode.
type Outcome struct {
	IsSuccess    bool               `json:"is_success"`
	HeatmapImage string             `json:"heatmap_image"`
	Metrics      map[string]float64 `json:"metrics"`
	Summary      string             `json:"summary"`
}

// Run is one simulation execution.
type Run struct {
	ID          string             `json:"id"`
	Kind        Kind               `json:"kind"`
	Mode        string             `json:"mode"`
	Status      Status             `json:"status"`
	Input       Input              `json:"input"`
	IsSuccess   bool               `json:"is_success"`
	Metrics     map[string]float64 `json:"metrics"`
	Summary     string             `json:"summary"`
	ArtifactKey string             `json:"artifact_key,omitempty"`
	RequestID   string             `json:"request_id,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`
}

// NewRun creates a pending run with a fresh id.
func NewRun(kind Kind, mode string, in Input) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Mode:      mode,
		Status:    StatusPending,
		Input:     in,
		Metrics:   map[string]float64{},
		CreatedAt: time.Now().UTC(),
	}
}

func (r *Run) Start(now time.Time) {
	now = now.UTC()
	r.Status = StatusRunning
	r.StartedAt = &now
}

// Finish records o.  A run that produced an unsuccessful outcome is failed.
func (r *Run) Finish(o Outcome, now time.Time) {
	now = now.UTC()
	r.IsSuccess = o.IsSuccess
	r.Summary = o.Summary
	r.Metrics = o.Metrics
	if r.Metrics == nil {
		r.Metrics = map[string]float64{}
	}
	r.FinishedAt = &now
	if r.StartedAt == nil {
		r.StartedAt = &now
	}
	if o.IsSuccess {
		r.Status = StatusSucceeded
	} else {
		r.Status = StatusFailed
	}
}

// Fail marks the run failed with err's text as the summary.
func (r *Run) Fail(err error, now time.Time) {
	r.Finish(Outcome{Summary: err.Error()}, now)
}

// Duration is zero until the run has both started and finished.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// Outcome rebuilds the response body of a finished run.  The image is not
// stored with the run, so it is empty.
func (r *Run) Outcome() Outcome {
	m := r.Metrics
	if m == nil {
		m = map[string]float64{}
	}
	return Outcome{IsSuccess: r.IsSuccess, Metrics: m, Summary: r.Summary}
}

// ArtifactObjectKey is where a run's heatmap is archived.
func ArtifactObjectKey(kind Kind, runID string) string {
	return strings.Join([]string{"heatmaps", string(kind), runID + ".png"}, "/")
}

// MetricsJSON is the persisted form of Metrics.
func (r *Run) MetricsJSON() ([]byte, error) {
	if r.Metrics == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Metrics)
}

//Personal.AI order the ending
