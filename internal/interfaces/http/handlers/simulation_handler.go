package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/Massing-Sim/internal/application/simulation"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

// SimulationHandler serves the environmental simulations and their run
// history.
type SimulationHandler struct {
	service simulation.Service
	logger  logging.Logger
	maxBody int64
}

func NewSimulationHandler(service simulation.Service, logger logging.Logger, maxBody int64) *SimulationHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SimulationHandler{service: service, logger: logger, maxBody: maxBody}
}

// Simulate handles POST /api/sim/{kind}.  The kind comes from the path; an
// unknown kind is answered with 200 and is_success=false.
func (h *SimulationHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var in types.SimulationInput
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.service.Simulate(r.Context(), chi.URLParam(r, "kind"), &in))
}

// Submit handles POST /api/sim/{kind}/jobs.
func (h *SimulationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in types.SimulationInput
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	resp, err := h.service.Submit(r.Context(), chi.URLParam(r, "kind"), &in)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/sim/runs/"+resp.RunID)
	writeJSON(w, http.StatusAccepted, resp)
}

// GetRun handles GET /api/sim/runs/{id}.
func (h *SimulationHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns handles GET /api/sim/runs?kind=&status=&limit=&offset=.
func (h *SimulationHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := types.ListRunsRequest{Kind: q.Get("kind"), Status: q.Get("status")}
	var err error
	if req.Limit, err = queryInt(r, "limit"); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if req.Offset, err = queryInt(r, "offset"); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if err := validateStruct(&req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	resp, err := h.service.ListRuns(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

//Personal.AI order the ending
