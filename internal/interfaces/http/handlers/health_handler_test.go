package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Massing-Sim/pkg/types/common"
)

type healthRecorderStub struct {
	mu sync.Mutex
	up map[string]bool
}

func (s *healthRecorderStub) SetComponentHealth(component string, up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.up[component] = up
}

func ok(context.Context) error { return nil }

func TestHealthHandler_Root(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler("test", nil).Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"running","message":"Simulation Service is Ready"}`, rec.Body.String())
}

func TestHealthHandler_Liveness(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler("v1.2.3", nil, NewChecker("db", func(context.Context) error { return stderrors.New("down") })).
		Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "up", body.Status)
	assert.Equal(t, "v1.2.3", body.Version)
}

func TestHealthHandler_Readiness(t *testing.T) {
	t.Run("no dependencies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler("v", nil).Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("all up", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler("v", nil, NewChecker("redis", ok), NewChecker("postgres", ok)).
			Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var report common.HealthReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, common.HealthUp, report.Status)
		require.Len(t, report.Components, 2)
		assert.Equal(t, "postgres", report.Components[0].Name)
	})

	t.Run("one down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		recorder := &healthRecorderStub{up: map[string]bool{}}
		NewHealthHandler("v", recorder, NewChecker("redis", ok), NewChecker("minio", func(context.Context) error {
			return stderrors.New("connection refused")
		})).Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var report common.HealthReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, common.HealthDown, report.Status)
		assert.Equal(t, "connection refused", report.Components[0].Message)
		assert.Equal(t, map[string]bool{"redis": true, "minio": false}, recorder.up)
	})
}

//Personal.AI order the ending
