package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/turtacn/Massing-Sim/internal/application/evaluation"
	"github.com/turtacn/Massing-Sim/internal/compute/datatree"
	"github.com/turtacn/Massing-Sim/internal/compute/definition"
	"github.com/turtacn/Massing-Sim/internal/compute/rhino"
	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/pkg/errors"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

func TestComputeHandler_EvaluateEcho(t *testing.T) {
	client := rhino.NewMockClient()
	client.EvaluateFunc = rhino.EchoEvaluate
	h := NewComputeHandler(evaluation.NewService(config.ModeCompute, client, nil, nil), nil, 0)

	rec := httptest.NewRecorder()
	h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/api/compute/evaluate",
		strings.NewReader(`{"definition":"playground.gh","params":{"x":[1,2,3],"label":"a"}}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Definition string          `json:"definition"`
		Values     json.RawMessage `json:"values"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "playground.gh", resp.Definition)
	assert.JSONEq(t, `{"label":["a"],"x":[1,2,3]}`, string(resp.Values))
}

func TestComputeHandler_EvaluateKeepsLargeIntegers(t *testing.T) {
	client := rhino.NewMockClient()
	client.EvaluateFunc = rhino.EchoEvaluate
	h := NewComputeHandler(evaluation.NewService(config.ModeCompute, client, nil, nil), nil, 0)

	rec := httptest.NewRecorder()
	h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/api/compute/evaluate",
		strings.NewReader(`{"definition":"playground.gh","params":{"id":9007199254740993}}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":[9007199254740993]`)
}

func TestComputeHandler_RejectedDefinition(t *testing.T) {
	client := rhino.NewMockClient()
	client.EvaluateFunc = func(context.Context, string, []datatree.Tree) (*datatree.Result, error) {
		return nil, fmt.Errorf("%w: absolute path", definition.ErrDefinitionRejected)
	}
	h := NewComputeHandler(evaluation.NewService(config.ModeCompute, client, nil, nil), nil, 0)

	rec := httptest.NewRecorder()
	h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/api/compute/evaluate",
		strings.NewReader(`{"definition":"/etc/passwd"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrCodeBadRequest), decodeError(t, rec).Code)
}

func TestComputeHandler_EvaluateErrors(t *testing.T) {
	svc := &mockEvaluationService{}
	svc.On("Evaluate", mock.Anything, mock.Anything).Return(nil, errors.New(errors.ErrCodeDefinitionNotFound, "definition not found"))
	h := NewComputeHandler(svc, nil, 0)

	rec := httptest.NewRecorder()
	h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/api/compute/evaluate", strings.NewReader(`{"params":{}}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Detail, "definition")
	svc.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything)

	rec = httptest.NewRecorder()
	h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/api/compute/evaluate", strings.NewReader(`{"definition":"gone.gh"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CMP_003", decodeError(t, rec).Code)
}

func TestComputeHandler_Health(t *testing.T) {
	tests := []struct {
		status string
		want   int
	}{
		{"up", http.StatusOK},
		{"disabled", http.StatusOK},
		{"down", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			svc := &mockEvaluationService{}
			svc.On("Health", mock.Anything).Return(&types.ComputeHealthResponse{Status: tt.status, Mode: "compute"})
			rec := httptest.NewRecorder()
			NewComputeHandler(svc, nil, 0).Health(rec, httptest.NewRequest(http.MethodGet, "/api/compute/health", nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":"`+tt.status+`"`)
		})
	}
}

//Personal.AI order the ending
