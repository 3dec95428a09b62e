package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	domain "github.com/turtacn/Massing-Sim/internal/domain/simulation"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

type mockMassingService struct {
	mock.Mock
}

func (m *mockMassingService) Generate(ctx context.Context, in *types.MassingToolInput) *types.MassingToolOutput {
	args := m.Called(ctx, in)
	return args.Get(0).(*types.MassingToolOutput)
}

type mockSimulationService struct {
	mock.Mock
}

func (m *mockSimulationService) Simulate(ctx context.Context, kind string, in *types.SimulationInput) *types.SimulationToolOutput {
	args := m.Called(ctx, kind, in)
	return args.Get(0).(*types.SimulationToolOutput)
}

func (m *mockSimulationService) Submit(ctx context.Context, kind string, in *types.SimulationInput) (*types.SubmitResponse, error) {
	args := m.Called(ctx, kind, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubmitResponse), args.Error(1)
}

func (m *mockSimulationService) Execute(ctx context.Context, job domain.Job) (*domain.Run, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *mockSimulationService) GetRun(ctx context.Context, id string) (*types.RunResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RunResponse), args.Error(1)
}

func (m *mockSimulationService) ListRuns(ctx context.Context, req *types.ListRunsRequest) (*types.ListRunsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ListRunsResponse), args.Error(1)
}

type mockEvaluationService struct {
	mock.Mock
}

func (m *mockEvaluationService) Evaluate(ctx context.Context, req *types.EvaluateRequest) (*types.EvaluateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.EvaluateResponse), args.Error(1)
}

func (m *mockEvaluationService) Health(ctx context.Context) *types.ComputeHealthResponse {
	return m.Called(ctx).Get(0).(*types.ComputeHealthResponse)
}

// withURLParams attaches chi path parameters to r as the router would.
func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

//Personal.AI order the ending
