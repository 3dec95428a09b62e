// Package evaluation exposes raw Grasshopper evaluation: any catalog entry or
// definition file with caller-supplied parameters, returned as parsed outputs.
package evaluation

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/turtacn/Massing-Sim/internal/compute/datatree"
	"github.com/turtacn/Massing-Sim/internal/compute/definition"
	"github.com/turtacn/Massing-Sim/internal/compute/rhino"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
	"github.com/turtacn/Massing-Sim/pkg/types/common"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

// healthTimeout bounds a compute health probe.
const healthTimeout = 5 * time.Second

type Service interface {
	Evaluate(ctx context.Context, req *types.EvaluateRequest) (*types.EvaluateResponse, error)
	Health(ctx context.Context) *types.ComputeHealthResponse
}

type serviceImpl struct {
	mode    string
	client  rhino.Client
	catalog *definition.Catalog
	logger  logging.Logger
}

// NewService builds the service.  A nil client reports compute as disabled.
func NewService(mode string, client rhino.Client, catalog *definition.Catalog, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if catalog == nil {
		catalog = definition.DefaultCatalog()
	}
	return &serviceImpl{mode: mode, client: client, catalog: catalog, logger: logger.Named("evaluation")}
}

// File returns the definition file behind name: the catalog entry's file
// when name is registered, name itself otherwise.
func File(catalog *definition.Catalog, name string) string {
	if catalog != nil {
		if e, err := catalog.Lookup(name); err == nil {
			return e.File
		}
	}
	return name
}

func (s *serviceImpl) Evaluate(ctx context.Context, req *types.EvaluateRequest) (*types.EvaluateResponse, error) {
	if req == nil || req.Definition == "" {
		return nil, errors.Validation("definition is required")
	}
	if s.client == nil {
		return nil, errors.New(errors.ErrCodeComputeUnavailable, "compute client is not configured")
	}
	log := logging.ForContext(ctx, s.logger).With(logging.String(logging.FieldDefinition, req.Definition))

	params, err := datatree.ParamsFromMap(req.Params)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeParamEncodingFailed, "encode parameters")
	}

	start := time.Now()
	res, err := rhino.ComputeWithInput(ctx, s.client, File(s.catalog, req.Definition), params)
	if err != nil {
		log.Error("evaluation failed", logging.Err(err))
		return nil, ComputeError(err)
	}
	values, err := json.Marshal(datatree.ParseData(res))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode outputs")
	}
	logging.LogOperationDuration(log, "compute.evaluate", start, logging.Int("inputs", params.Len()))

	return &types.EvaluateResponse{
		Definition: req.Definition,
		Values:     values,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (s *serviceImpl) Health(ctx context.Context) *types.ComputeHealthResponse {
	resp := &types.ComputeHealthResponse{Mode: s.mode, Definitions: s.catalog.Names()}
	if s.client == nil {
		resp.Status = string(common.HealthDisabled)
		return resp
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := s.client.Healthy(ctx); err != nil {
		resp.Status = string(common.HealthDown)
		resp.Message = err.Error()
		return resp
	}
	resp.Status = string(common.HealthUp)
	return resp
}

// ComputeError maps a compute failure onto an AppError code.
func ComputeError(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, definition.ErrDefinitionNotFound):
		return errors.Wrap(err, errors.ErrCodeDefinitionNotFound, "definition not found")
	case stderrors.Is(err, definition.ErrDefinitionRejected):
		return errors.Wrap(err, errors.ErrCodeBadRequest, "definition not allowed")
	case stderrors.Is(err, definition.ErrUnknownDefinition):
		return errors.Wrap(err, errors.ErrCodeUnknownDefinition, "unknown definition")
	case stderrors.Is(err, rhino.ErrComputeUnavailable), stderrors.Is(err, rhino.ErrClientClosed):
		return errors.Wrap(err, errors.ErrCodeComputeUnavailable, "compute server unavailable")
	case stderrors.Is(err, rhino.ErrInvalidResponse):
		return errors.Wrap(err, errors.ErrCodeInvalidComputeResponse, "invalid compute response")
	case stderrors.Is(err, rhino.ErrEvaluationFailed):
		return errors.Wrap(err, errors.ErrCodeEvaluationFailed, "evaluation failed")
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.ErrCodeTimeout, "evaluation timed out")
	default:
		return errors.Wrap(err, errors.ErrCodeExternalService, "evaluation failed")
	}
}

//Personal.AI order the ending
