// Package common holds wire types shared by the HTTP API, the SDK and the
// message bus.
package common

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus indicates the health of a component or service.
type HealthStatus string

const (
	HealthUp       HealthStatus = "up"
	HealthDown     HealthStatus = "down"
	HealthDegraded HealthStatus = "degraded"
	HealthDisabled HealthStatus = "disabled"
)

// ComponentHealth provides health information for one dependency.
type ComponentHealth struct {
	Name      string       `json:"name"`
	Status    HealthStatus `json:"status"`
	LatencyMs int64        `json:"latency_ms"`
	Message   string       `json:"message,omitempty"`
}

// HealthReport is the /readyz body.
type HealthReport struct {
	Status     HealthStatus      `json:"status"`
	Components []ComponentHealth `json:"components"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// Overall is down when any component is down, degraded when any is
// degraded, and up otherwise.  Disabled components do not count.
func Overall(components []ComponentHealth) HealthStatus {
	status := HealthUp
	for _, c := range components {
		switch c.Status {
		case HealthDown:
			return HealthDown
		case HealthDegraded:
			status = HealthDegraded
		}
	}
	return status
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (e ErrorResponse) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// PageResponse wraps a page of list results.
type PageResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// HasMore reports whether another page follows this one.
func (p PageResponse[T]) HasMore() bool {
	return int64(p.Offset+len(p.Items)) < p.Total
}

// Message is a record read from the bus.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is a record to publish.  Partition is only honoured by
// manual balancers.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Partition int
	Timestamp time.Time
}

// MessageHandler processes one message.  A returned error triggers retries.
type MessageHandler func(ctx context.Context, msg *Message) error

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
	Configs           map[string]string
}

// Context keys shared between middleware and handlers.
type ContextKey string

const ContextKeyRequestID ContextKey = "request_id"

//Personal.AI order the ending
