package rhino

import (
	"context"
	"sync"

	"github.com/turtacn/Massing-Sim/internal/compute/datatree"
)

// MockClient is a Client whose behaviour is supplied by function fields.
// Calls are recorded for assertions.
type MockClient struct {
	EvaluateFunc func(ctx context.Context, definition string, trees []datatree.Tree) (*datatree.Result, error)
	HealthyFunc  func(ctx context.Context) error

	mu    sync.Mutex
	Calls []MockCall
}

// MockCall is one recorded Evaluate invocation.
type MockCall struct {
	Definition string
	Trees      []datatree.Tree
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Evaluate(ctx context.Context, definition string, trees []datatree.Tree) (*datatree.Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Definition: definition, Trees: trees})
	m.mu.Unlock()
	if m.EvaluateFunc != nil {
		return m.EvaluateFunc(ctx, definition, trees)
	}
	return &datatree.Result{}, nil
}

func (m *MockClient) Healthy(ctx context.Context) error {
	if m.HealthyFunc != nil {
		return m.HealthyFunc(ctx)
	}
	return nil
}

func (m *MockClient) Close() error { return nil }

// CallCount returns the number of Evaluate calls so far.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// EchoEvaluate returns every input tree back as an output of the same name.
func EchoEvaluate(_ context.Context, _ string, trees []datatree.Tree) (*datatree.Result, error) {
	out := make([]datatree.Tree, len(trees))
	copy(out, trees)
	return &datatree.Result{Values: out}, nil
}

//Personal.AI order the ending
