package simulation

import (
	"context"
	"io"
	"time"
)

// ListFilter narrows RunRepository.List.  Zero values do not filter.
type ListFilter struct {
	Kind   Kind
	Status Status
	Limit  int
	Offset int
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// Normalize clamps Limit into [1, MaxListLimit] and Offset to >= 0.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// RunRepository persists run history.  Get returns an error matching
// errors.IsNotFound for unknown ids.
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	Update(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, filter ListFilter) ([]*Run, int64, error)
}

// ArtifactStore archives heatmap images.
type ArtifactStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Job asks a worker to execute a pending run.
type Job struct {
	RunID       string    `json:"run_id"`
	Kind        Kind      `json:"kind"`
	Input       Input     `json:"input"`
	RequestID   string    `json:"request_id,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// CompletedEvent announces a finished run.
type CompletedEvent struct {
	RunID      string             `json:"run_id"`
	Kind       Kind               `json:"kind"`
	Status     Status             `json:"status"`
	IsSuccess  bool               `json:"is_success"`
	Metrics    map[string]float64 `json:"metrics"`
	Summary    string             `json:"summary"`
	FinishedAt time.Time          `json:"finished_at"`
}

// CompletedEventFor builds the event for a finished run.
func CompletedEventFor(r *Run) CompletedEvent {
	ev := CompletedEvent{
		RunID:     r.ID,
		Kind:      r.Kind,
		Status:    r.Status,
		IsSuccess: r.IsSuccess,
		Metrics:   r.Metrics,
		Summary:   r.Summary,
	}
	if r.FinishedAt != nil {
		ev.FinishedAt = *r.FinishedAt
	}
	return ev
}

// EventPublisher sends jobs and completion events to the message bus.
type EventPublisher interface {
	PublishJob(ctx context.Context, job Job) error
	PublishCompleted(ctx context.Context, ev CompletedEvent) error
}

//Personal.AI order the ending
