// Package simulation runs wind, sunlight and thermal simulations and keeps
// their history.  Synchronous requests and worker jobs share one pipeline:
// execute, apply the definition guard, archive the heatmap, persist the run
// and announce its completion.
package simulation

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/turtacn/Massing-Sim/internal/compute/datatree"
	"github.com/turtacn/Massing-Sim/internal/compute/definition"
	"github.com/turtacn/Massing-Sim/internal/compute/rhino"
	"github.com/turtacn/Massing-Sim/internal/config"
	domain "github.com/turtacn/Massing-Sim/internal/domain/simulation"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

// MissingArtifactSummary is reported when the engine wrote no image.
const MissingArtifactSummary = "simulation finished but no output image was produced"

const (
	fieldMassing = "massing_data"
	fieldContext = "context_data"
)

// Service is the simulation use-case boundary.
type Service interface {
	// Simulate runs kind synchronously.  It never fails: problems are
	// reported through an unsuccessful output.
	Simulate(ctx context.Context, kind string, in *types.SimulationInput) *types.SimulationToolOutput

	// Submit records a pending run and hands it to the worker pool.
	Submit(ctx context.Context, kind string, in *types.SimulationInput) (*types.SubmitResponse, error)

	// Execute runs a submitted job to completion.  A job whose run is
	// already terminal is not run again.
	Execute(ctx context.Context, job domain.Job) (*domain.Run, error)

	GetRun(ctx context.Context, id string) (*types.RunResponse, error)
	ListRuns(ctx context.Context, req *types.ListRunsRequest) (*types.ListRunsResponse, error)
}

// Recorder receives one observation per finished run.
type Recorder interface {
	RecordSimulation(kind, mode string, success bool, d time.Duration)
}

// Options configures the pipeline.
type Options struct {
	Mode          string
	ArtifactDir   string
	KeepArtifacts bool
	Archive       bool
	AsyncEnabled  bool
	PresignExpiry time.Duration
}

// OptionsFrom maps the simulation and storage config sections.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Mode:          cfg.Simulation.Mode,
		ArtifactDir:   cfg.Simulation.ArtifactDir,
		KeepArtifacts: cfg.Simulation.KeepArtifacts,
		Archive:       cfg.Simulation.ArchiveArtifacts,
		AsyncEnabled:  cfg.Simulation.AsyncEnabled,
		PresignExpiry: cfg.MinIO.PresignExpiry,
	}
}

// Deps are the collaborators of the service.  Only Client is needed in
// compute mode; every other field may be nil.
type Deps struct {
	Client    rhino.Client
	Catalog   *definition.Catalog
	Runs      domain.RunRepository
	Artifacts domain.ArtifactStore
	Events    domain.EventPublisher
	Recorder  Recorder
	Logger    logging.Logger
}

type serviceImpl struct {
	opts      Options
	client    rhino.Client
	catalog   *definition.Catalog
	runs      domain.RunRepository
	artifacts domain.ArtifactStore
	events    domain.EventPublisher
	recorder  Recorder
	logger    logging.Logger
	now       func() time.Time
}

func NewService(opts Options, deps Deps) Service {
	if opts.Mode == "" {
		opts.Mode = config.ModeMock
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Catalog == nil {
		deps.Catalog = definition.DefaultCatalog()
	}
	return &serviceImpl{
		opts:      opts,
		client:    deps.Client,
		catalog:   deps.Catalog,
		runs:      deps.Runs,
		artifacts: deps.Artifacts,
		events:    deps.Events,
		recorder:  deps.Recorder,
		logger:    deps.Logger.Named("simulation"),
		now:       time.Now,
	}
}

func failed(summary string) *types.SimulationToolOutput {
	return &types.SimulationToolOutput{Metrics: map[string]float64{}, Summary: summary}
}

func (s *serviceImpl) Simulate(ctx context.Context, kindName string, in *types.SimulationInput) *types.SimulationToolOutput {
	if in == nil {
		in = &types.SimulationInput{}
	}
	log := logging.ForContext(ctx, s.logger)

	kind, err := domain.ParseKind(kindName)
	if err != nil {
		log.Warn("unknown simulation kind", logging.String(logging.FieldKind, kindName))
		return failed(err.Error())
	}

	run := domain.NewRun(kind, s.opts.Mode, domain.Input{MassingData: in.MassingData, ContextData: in.ContextData})
	run.RequestID = logging.RequestIDFromContext(ctx)
	ctx = logging.WithRunID(ctx, run.ID)
	log = logging.ForContext(ctx, s.logger)
	log.Info("simulation requested",
		logging.String(logging.FieldKind, kind.String()),
		logging.Int("massing_bytes", len(in.MassingData)))

	if s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			log.Warn("run history unavailable", logging.Err(err))
		}
	}

	o := s.process(ctx, run)
	return &types.SimulationToolOutput{
		IsSuccess:    o.IsSuccess,
		HeatmapImage: o.HeatmapImage,
		Metrics:      o.Metrics,
		Summary:      o.Summary,
	}
}

func (s *serviceImpl) Submit(ctx context.Context, kindName string, in *types.SimulationInput) (*types.SubmitResponse, error) {
	if !s.opts.AsyncEnabled || s.events == nil {
		return nil, errors.New(errors.ErrCodeAsyncDisabled, "asynchronous simulations are disabled")
	}
	kind, err := domain.ParseKind(kindName)
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnknownSimulationKind, err.Error())
	}
	if in == nil {
		in = &types.SimulationInput{}
	}

	run := domain.NewRun(kind, s.opts.Mode, domain.Input{MassingData: in.MassingData, ContextData: in.ContextData})
	run.RequestID = logging.RequestIDFromContext(ctx)
	log := logging.ForContext(logging.WithRunID(ctx, run.ID), s.logger)

	if s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			return nil, err
		}
	}

	job := domain.Job{
		RunID:       run.ID,
		Kind:        kind,
		Input:       run.Input,
		RequestID:   run.RequestID,
		SubmittedAt: run.CreatedAt,
	}
	if err := s.events.PublishJob(ctx, job); err != nil {
		log.Error("job publish failed", logging.Err(err))
		if s.runs != nil {
			run.Fail(fmt.Errorf("job could not be queued: %w", err), s.now())
			if uerr := s.runs.Update(ctx, run); uerr != nil {
				log.Warn("failed to mark run failed", logging.Err(uerr))
			}
		}
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "queue simulation job")
	}

	log.Info("simulation queued", logging.String(logging.FieldKind, kind.String()))
	return &types.SubmitResponse{RunID: run.ID, Status: string(run.Status)}, nil
}

func (s *serviceImpl) Execute(ctx context.Context, job domain.Job) (*domain.Run, error) {
	if !job.Kind.IsValid() {
		return nil, errors.New(errors.ErrCodeUnknownSimulationKind, fmt.Sprintf("unknown simulation type: %s", job.Kind))
	}
	if job.RequestID != "" {
		ctx = logging.WithRequestID(ctx, job.RequestID)
	}
	ctx = logging.WithRunID(ctx, job.RunID)
	log := logging.ForContext(ctx, s.logger)

	run, err := s.loadRun(ctx, job)
	if err != nil {
		return nil, err
	}
	if run.Status.Terminal() {
		log.Info("run already finished, skipping", logging.String("status", string(run.Status)))
		return run, nil
	}

	s.process(ctx, run)
	if ctx.Err() != nil {
		return run, ctx.Err()
	}
	return run, nil
}

// loadRun returns the stored run of job, or a fresh one when history is
// disabled or the submitter could not record it.
func (s *serviceImpl) loadRun(ctx context.Context, job domain.Job) (*domain.Run, error) {
	fresh := func() *domain.Run {
		r := domain.NewRun(job.Kind, s.opts.Mode, job.Input)
		r.ID = job.RunID
		r.RequestID = job.RequestID
		if !job.SubmittedAt.IsZero() {
			r.CreatedAt = job.SubmittedAt.UTC()
		}
		return r
	}
	if s.runs == nil {
		return fresh(), nil
	}
	run, err := s.runs.Get(ctx, job.RunID)
	switch {
	case err == nil:
		return run, nil
	case errors.IsNotFound(err):
		r := fresh()
		if cerr := s.runs.Create(ctx, r); cerr != nil {
			return nil, cerr
		}
		return r, nil
	default:
		return nil, err
	}
}

// process executes run and records the result everywhere it belongs.
func (s *serviceImpl) process(ctx context.Context, run *domain.Run) domain.Outcome {
	log := logging.ForContext(ctx, s.logger)
	run.Start(s.now())
	if s.runs != nil {
		if err := s.runs.Update(ctx, run); err != nil {
			log.Warn("failed to mark run started", logging.Err(err))
		}
	}

	o := s.execute(ctx, run)
	o = s.applyGuard(ctx, run.Kind, o)
	run.Finish(o, s.now())

	if o.HeatmapImage != "" {
		run.ArtifactKey = s.archive(ctx, run, o.HeatmapImage)
	}
	if s.runs != nil {
		if err := s.runs.Update(ctx, run); err != nil {
			log.Warn("failed to store run result", logging.Err(err))
		}
	}
	if s.events != nil {
		if err := s.events.PublishCompleted(ctx, domain.CompletedEventFor(run)); err != nil {
			log.Warn("completion event not published", logging.Err(err))
		}
	}
	if s.recorder != nil {
		s.recorder.RecordSimulation(run.Kind.String(), run.Mode, run.IsSuccess, run.Duration())
	}

	log.Info("simulation finished",
		logging.String(logging.FieldKind, run.Kind.String()),
		logging.Bool("success", run.IsSuccess),
		logging.Int64("duration_ms", run.Duration().Milliseconds()))
	return o
}

func (s *serviceImpl) execute(ctx context.Context, run *domain.Run) domain.Outcome {
	if run.Mode == config.ModeCompute {
		return s.compute(ctx, run)
	}
	return MockOutcome(run.Kind)
}

// compute evaluates the kind's definition.  The engine writes its heatmap to
// a path unique to the run, which is removed once read.
func (s *serviceImpl) compute(ctx context.Context, run *domain.Run) domain.Outcome {
	log := logging.ForContext(ctx, s.logger)
	fail := func(err error) domain.Outcome {
		log.Error("simulation failed", logging.Err(err))
		return domain.Outcome{Metrics: map[string]float64{}, Summary: err.Error()}
	}

	if s.client == nil {
		return fail(rhino.ErrComputeUnavailable)
	}
	entry, err := s.catalog.Lookup(run.Kind.String())
	if err != nil {
		return fail(err)
	}

	params := datatree.NewParams(
		datatree.Scalar(entry.InputName(fieldMassing), datatree.String(run.Input.MassingData)),
		datatree.Scalar(entry.InputName(fieldContext), datatree.String(run.Input.ContextData)),
	)

	var imagePath string
	if entry.ImageParam != "" {
		dir, err := filepath.Abs(filepath.Join(s.opts.ArtifactDir, run.ID))
		if err != nil {
			return fail(err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fail(fmt.Errorf("prepare artifact directory: %w", err))
		}
		if !s.opts.KeepArtifacts {
			defer os.RemoveAll(dir)
		}
		imagePath = filepath.Join(dir, run.Kind.String()+".png")
		if err := os.Remove(imagePath); err != nil && !os.IsNotExist(err) {
			return fail(fmt.Errorf("clear stale artifact: %w", err))
		}
		params.SetScalar(entry.ImageParam, datatree.String(imagePath))
	}

	res, err := rhino.ComputeWithInput(ctx, s.client, entry.File, params)
	if err != nil {
		return fail(err)
	}
	parsed := datatree.ParseData(res)

	o := domain.Outcome{
		IsSuccess: true,
		Metrics:   collectMetrics(entry, parsed),
		Summary:   strings.Join(parsed.Strings(entry.SummaryOutput), "\n"),
	}
	if imagePath != "" {
		o.HeatmapImage = EncodeFileBase64(imagePath, log)
		if o.HeatmapImage == "" {
			o.IsSuccess = false
			o.Summary = MissingArtifactSummary
			return o
		}
	}
	if o.Summary == "" {
		o.Summary = fmt.Sprintf("%s simulation completed", run.Kind)
	}
	return o
}

// collectMetrics keeps the numeric outputs the entry declares as metrics.
func collectMetrics(entry *definition.Entry, parsed *datatree.Parsed) map[string]float64 {
	out := make(map[string]float64)
	for _, name := range parsed.Names() {
		if name == entry.ImageParam || !entry.IsMetric(name) {
			continue
		}
		if f, ok := parsed.Float(name); ok {
			out[name] = f
		}
	}
	return out
}

// applyGuard turns a successful outcome unsuccessful when the definition's
// guard rejects its metrics.
func (s *serviceImpl) applyGuard(ctx context.Context, kind domain.Kind, o domain.Outcome) domain.Outcome {
	if !o.IsSuccess {
		return o
	}
	entry, err := s.catalog.Lookup(kind.String())
	if err != nil || entry.Guard() == nil {
		return o
	}
	ok, gerr := entry.Guard().Check(kind.String(), o.Metrics)
	if ok {
		return o
	}
	reason := "guard failed: " + entry.Guard().Expression()
	if gerr != nil {
		reason += " (" + gerr.Error() + ")"
	}
	logging.ForContext(ctx, s.logger).Warn("guard rejected result", logging.String("guard", entry.Guard().Expression()), logging.Err(gerr))
	o.IsSuccess = false
	if o.Summary == "" {
		o.Summary = reason
	} else {
		o.Summary += "; " + reason
	}
	return o
}

// archive stores the heatmap and returns its object key, or "" when
// archiving is off or failed.
func (s *serviceImpl) archive(ctx context.Context, run *domain.Run, image string) string {
	if !s.opts.Archive || s.artifacts == nil {
		return ""
	}
	log := logging.ForContext(ctx, s.logger)
	data, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		log.Warn("heatmap is not valid base64", logging.Err(err))
		return ""
	}
	key := domain.ArtifactObjectKey(run.Kind, run.ID)
	if err := s.artifacts.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/png"); err != nil {
		log.Warn("heatmap archive failed", logging.String("key", key), logging.Err(err))
		return ""
	}
	return key
}

func (s *serviceImpl) GetRun(ctx context.Context, id string) (*types.RunResponse, error) {
	if s.runs == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "run history is disabled")
	}
	run, err := s.runs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toRunResponse(run)
	resp.ArtifactURL = s.artifactURL(ctx, run)
	return &resp, nil
}

func (s *serviceImpl) ListRuns(ctx context.Context, req *types.ListRunsRequest) (*types.ListRunsResponse, error) {
	if s.runs == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "run history is disabled")
	}
	if req == nil {
		req = &types.ListRunsRequest{}
	}
	filter := domain.ListFilter{Status: domain.Status(req.Status), Limit: req.Limit, Offset: req.Offset}
	if req.Kind != "" {
		kind, err := domain.ParseKind(req.Kind)
		if err != nil {
			return nil, errors.New(errors.ErrCodeValidation, err.Error())
		}
		filter.Kind = kind
	}
	filter = filter.Normalize()

	runs, total, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]types.RunResponse, 0, len(runs))
	for _, r := range runs {
		items = append(items, toRunResponse(r))
	}
	return &types.ListRunsResponse{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *serviceImpl) artifactURL(ctx context.Context, run *domain.Run) string {
	if run.ArtifactKey == "" || s.artifacts == nil {
		return ""
	}
	url, err := s.artifacts.PresignedURL(ctx, run.ArtifactKey, s.opts.PresignExpiry)
	if err != nil {
		logging.ForContext(ctx, s.logger).Warn("presign failed", logging.String("key", run.ArtifactKey), logging.Err(err))
		return ""
	}
	return url
}

func toRunResponse(r *domain.Run) types.RunResponse {
	m := r.Metrics
	if m == nil {
		m = map[string]float64{}
	}
	return types.RunResponse{
		ID:         r.ID,
		Kind:       r.Kind.String(),
		Mode:       r.Mode,
		Status:     string(r.Status),
		IsSuccess:  r.IsSuccess,
		Metrics:    m,
		Summary:    r.Summary,
		CreatedAt:  r.CreatedAt,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
	}
}

//Personal.AI order the ending
