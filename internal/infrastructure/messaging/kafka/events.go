package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/Massing-Sim/internal/domain/simulation"
	"github.com/turtacn/Massing-Sim/pkg/errors"
	"github.com/turtacn/Massing-Sim/pkg/types/common"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventJobRequested = "simulation.job.requested"
	EventRunCompleted = "simulation.run.completed"

	SchemaVersion = "v1"

	HeaderEventType = "event_type"
	HeaderSource    = "source_service"
	HeaderRequestID = "request_id"
)

// EventEnvelope wraps every payload on the bus.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	RequestID     string          `json:"request_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEventEnvelope(eventType, source string, payload any) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload fails on an empty payload.
func (e *EventEnvelope) DecodePayload(target any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "event payload is empty").WithDetail(e.EventType)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}

// ToMessage encodes e for topic, keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (*common.ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		HeaderEventType: e.EventType,
		HeaderSource:    e.Source,
	}
	if e.RequestID != "" {
		headers[HeaderRequestID] = e.RequestID
	}
	return &common.ProducerMessage{
		Topic:     topic,
		Key:       []byte(key),
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

func MessageToEventEnvelope(msg *common.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// DecodeJob reads a job request message.  Messages of another event type
// are rejected.
func DecodeJob(msg *common.Message) (*simulation.Job, *EventEnvelope, error) {
	env, err := MessageToEventEnvelope(msg)
	if err != nil {
		return nil, nil, err
	}
	if env.EventType != EventJobRequested {
		return nil, env, errors.New(errors.ErrCodeValidation, "unexpected event type").WithDetail(env.EventType)
	}
	var job simulation.Job
	if err := env.DecodePayload(&job); err != nil {
		return nil, env, err
	}
	if job.RunID == "" {
		return nil, env, errors.New(errors.ErrCodeValidation, "job has no run id")
	}
	return &job, env, nil
}

// SimulationEvents publishes jobs and completion events.  It implements
// simulation.EventPublisher.
type SimulationEvents struct {
	publisher  Publisher
	jobTopic   string
	eventTopic string
	source     string
}

func NewSimulationEvents(p Publisher, jobTopic, eventTopic, source string) *SimulationEvents {
	if jobTopic == "" {
		jobTopic = TopicJobRequested
	}
	if eventTopic == "" {
		eventTopic = TopicRunCompleted
	}
	return &SimulationEvents{publisher: p, jobTopic: jobTopic, eventTopic: eventTopic, source: source}
}

func (s *SimulationEvents) PublishJob(ctx context.Context, job simulation.Job) error {
	env, err := NewEventEnvelope(EventJobRequested, s.source, job)
	if err != nil {
		return err
	}
	env.RequestID = job.RequestID
	return s.publish(ctx, env, s.jobTopic, job.RunID)
}

func (s *SimulationEvents) PublishCompleted(ctx context.Context, ev simulation.CompletedEvent) error {
	env, err := NewEventEnvelope(EventRunCompleted, s.source, ev)
	if err != nil {
		return err
	}
	return s.publish(ctx, env, s.eventTopic, ev.RunID)
}

func (s *SimulationEvents) publish(ctx context.Context, env *EventEnvelope, topic, key string) error {
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, msg)
}

var _ simulation.EventPublisher = (*SimulationEvents)(nil)

//Personal.AI order the ending
