// Package massing generates building massing schemes, either from a canned
// mock or by evaluating the massing definition on Rhino Compute.
package massing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/Massing-Sim/internal/compute/datatree"
	"github.com/turtacn/Massing-Sim/internal/compute/definition"
	"github.com/turtacn/Massing-Sim/internal/compute/rhino"
	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

// Service produces massing schemes.  Generate never fails: problems are
// reported through a status "error" output.
type Service interface {
	Generate(ctx context.Context, in *types.MassingToolInput) *types.MassingToolOutput
}

// Request field names, mapped to Get components through the catalog.
const (
	fieldIndex        = "index"
	fieldBuildingArea = "building_area"
	fieldFloorCount   = "floor_count"
	fieldPlotRatio    = "plot_ratio"
)

type serviceImpl struct {
	mode    string
	client  rhino.Client
	catalog *definition.Catalog
	logger  logging.Logger
}

// NewService builds the service.  client and catalog may be nil in mock mode.
func NewService(mode string, client rhino.Client, catalog *definition.Catalog, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if catalog == nil {
		catalog = definition.DefaultCatalog()
	}
	return &serviceImpl{mode: mode, client: client, catalog: catalog, logger: logger.Named("massing")}
}

func (s *serviceImpl) Generate(ctx context.Context, in *types.MassingToolInput) *types.MassingToolOutput {
	if in == nil {
		in = &types.MassingToolInput{}
	}
	log := logging.ForContext(ctx, s.logger)
	log.Info("massing requested",
		logging.Int(fieldIndex, in.Index),
		logging.Any(fieldBuildingArea, in.BuildingArea),
		logging.String("mode", s.mode))

	if s.mode != config.ModeCompute {
		return MockScheme(in.Floors(), in.Ratio())
	}

	start := time.Now()
	out, err := s.compute(ctx, in)
	if err != nil {
		log.Error("massing generation failed", logging.Err(err))
		return &types.MassingToolOutput{Description: err.Error(), Status: types.StatusError}
	}
	logging.LogOperationDuration(log, "massing.generate", start)
	return out
}

// MockScheme is the canned response used when no compute server is wired.
func MockScheme(floors int, ratio float64) *types.MassingToolOutput {
	return &types.MassingToolOutput{
		GeometryData: fmt.Sprintf("{ 'type': 'Mesh', 'vertices': %d }", floors*4),
		Description:  describe(floors, ratio),
		Status:       types.StatusCompleted,
	}
}

func describe(floors int, ratio float64) string {
	return fmt.Sprintf("generated scheme, floors: %d, plot ratio: %s", floors, formatRatio(ratio))
}

// formatRatio always keeps one decimal so 2 prints as 2.0.
func formatRatio(r float64) string {
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (s *serviceImpl) compute(ctx context.Context, in *types.MassingToolInput) (*types.MassingToolOutput, error) {
	if s.client == nil {
		return nil, rhino.ErrComputeUnavailable
	}
	entry, err := s.catalog.Lookup(definition.Massing)
	if err != nil {
		return nil, err
	}

	floors, ratio := in.Floors(), in.Ratio()
	params := datatree.NewParams(
		datatree.Scalar(entry.InputName(fieldIndex), datatree.Int(in.Index)),
		datatree.Scalar(entry.InputName(fieldFloorCount), datatree.Int(floors)),
		datatree.Scalar(entry.InputName(fieldPlotRatio), datatree.Number(ratio)),
	)
	if in.BuildingArea != nil {
		params.SetScalar(entry.InputName(fieldBuildingArea), datatree.Number(*in.BuildingArea))
	}

	res, err := rhino.ComputeWithInput(ctx, s.client, entry.File, params)
	if err != nil {
		return nil, err
	}
	parsed := datatree.ParseData(res)

	geometry := parsed.Strings(entry.GeometryOutput)
	if len(geometry) == 0 {
		return nil, fmt.Errorf("%w: output %q is missing", rhino.ErrInvalidResponse, entry.GeometryOutput)
	}
	desc := strings.Join(parsed.Strings(entry.SummaryOutput), "\n")
	if desc == "" {
		desc = describe(floors, ratio)
	}
	return &types.MassingToolOutput{
		GeometryData: geometry[0],
		Description:  desc,
		Status:       types.StatusCompleted,
	}, nil
}

//Personal.AI order the ending
