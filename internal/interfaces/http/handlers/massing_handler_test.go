package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/turtacn/Massing-Sim/internal/application/massing"
	"github.com/turtacn/Massing-Sim/internal/config"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

func TestMassingHandler_Generate(t *testing.T) {
	svc := &mockMassingService{}
	svc.On("Generate", mock.Anything, mock.MatchedBy(func(in *types.MassingToolInput) bool {
		return in.Index == 2 && in.Floors() == 8 && in.PlotRatio == nil
	})).Return(&types.MassingToolOutput{GeometryData: "g", Description: "d", Status: types.StatusCompleted})
	h := NewMassingHandler(svc, nil, 0)

	rec := httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodPost, "/api/massing/generate", strings.NewReader(`{"index":2,"floor_count":8,"plot_ratio":null}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"geometry_data":"g","description":"d","status":"completed"}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestMassingHandler_MockDefaults(t *testing.T) {
	h := NewMassingHandler(massing.NewService(config.ModeMock, nil, nil, nil), nil, 0)

	rec := httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodPost, "/api/massing/generate", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"geometry_data": "{ 'type': 'Mesh', 'vertices': 20 }",
		"description": "generated scheme, floors: 5, plot ratio: 2.0",
		"status": "completed"
	}`, rec.Body.String())
}

func TestMassingHandler_InvalidBody(t *testing.T) {
	svc := &mockMassingService{}
	h := NewMassingHandler(svc, nil, 0)

	rec := httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodPost, "/api/massing/generate", strings.NewReader(`{"floor_count":"many"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "COMMON_002", decodeError(t, rec).Code)
	svc.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

//Personal.AI order the ending
