package handlers

import (
	"net/http"

	"github.com/turtacn/Massing-Sim/internal/application/massing"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

// MassingHandler serves massing scheme generation.
type MassingHandler struct {
	service massing.Service
	logger  logging.Logger
	maxBody int64
}

func NewMassingHandler(service massing.Service, logger logging.Logger, maxBody int64) *MassingHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MassingHandler{service: service, logger: logger, maxBody: maxBody}
}

// Generate handles POST /api/massing/generate.  Generation failures are
// reported in the body with status "error", never as an HTTP error.
func (h *MassingHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var in types.MassingToolInput
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.service.Generate(r.Context(), &in))
}

//Personal.AI order the ending
