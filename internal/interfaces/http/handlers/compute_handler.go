package handlers

import (
	"net/http"

	"github.com/turtacn/Massing-Sim/internal/application/evaluation"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/types/common"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

// ComputeHandler exposes raw definition evaluation and the compute probe.
type ComputeHandler struct {
	service evaluation.Service
	logger  logging.Logger
	maxBody int64
}

func NewComputeHandler(service evaluation.Service, logger logging.Logger, maxBody int64) *ComputeHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ComputeHandler{service: service, logger: logger, maxBody: maxBody}
}

// Evaluate handles POST /api/compute/evaluate.
func (h *ComputeHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req types.EvaluateRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	resp, err := h.service.Evaluate(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /api/compute/health.  A down server answers 503 so the
// endpoint can back an external probe.
func (h *ComputeHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := h.service.Health(r.Context())
	status := http.StatusOK
	if resp.Status == string(common.HealthDown) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

//Personal.AI order the ending
