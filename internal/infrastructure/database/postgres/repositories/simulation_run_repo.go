package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/turtacn/Massing-Sim/internal/domain/simulation"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
)

const runColumns = `id::text, kind, mode, status, massing_data, context_data, is_success,
	metrics, summary, artifact_key, request_id, created_at, started_at, finished_at`

// SimulationRunRepository stores runs in the simulation_runs table.
type SimulationRunRepository struct {
	db      DBTX
	log     logging.Logger
	metrics QueryRecorder
}

var _ simulation.RunRepository = (*SimulationRunRepository)(nil)

func NewSimulationRunRepository(db DBTX, log logging.Logger, rec QueryRecorder) *SimulationRunRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &SimulationRunRepository{db: db, log: log, metrics: rec}
}

func (r *SimulationRunRepository) observe(op string, start time.Time, err error) {
	r.metrics.RecordDBQuery(op, time.Since(start), err)
}

func (r *SimulationRunRepository) Create(ctx context.Context, run *simulation.Run) (err error) {
	defer func(start time.Time) { r.observe("run_create", start, err) }(time.Now())

	metrics, err := run.MetricsJSON()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode run metrics")
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO simulation_runs (
			id, kind, mode, status, massing_data, context_data, is_success,
			metrics, summary, artifact_key, request_id, created_at, started_at, finished_at
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		run.ID, string(run.Kind), run.Mode, string(run.Status), run.Input.MassingData, run.Input.ContextData,
		run.IsSuccess, metrics, run.Summary, run.ArtifactKey, run.RequestID, run.CreatedAt, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "insert simulation run")
	}
	return nil
}

// Update writes the mutable result columns of run.
func (r *SimulationRunRepository) Update(ctx context.Context, run *simulation.Run) (err error) {
	defer func(start time.Time) { r.observe("run_update", start, err) }(time.Now())

	metrics, err := run.MetricsJSON()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode run metrics")
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE simulation_runs SET
			status = $2, is_success = $3, metrics = $4, summary = $5,
			artifact_key = $6, started_at = $7, finished_at = $8
		WHERE id = $1::uuid`,
		run.ID, string(run.Status), run.IsSuccess, metrics, run.Summary, run.ArtifactKey, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "update simulation run")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeRunNotFound, "simulation run not found").WithDetail("id=" + run.ID)
	}
	return nil
}

func (r *SimulationRunRepository) Get(ctx context.Context, id string) (run *simulation.Run, err error) {
	if _, perr := uuid.Parse(id); perr != nil {
		return nil, errors.New(errors.ErrCodeRunNotFound, "simulation run not found").WithDetail("id=" + id)
	}
	defer func(start time.Time) { r.observe("run_get", start, err) }(time.Now())

	row := r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM simulation_runs WHERE id = $1::uuid`, id)
	run, err = scanRun(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeRunNotFound, "simulation run not found").WithDetail("id=" + id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "get simulation run")
	}
	return run, nil
}

// List returns the newest runs first along with the unpaged total.
func (r *SimulationRunRepository) List(ctx context.Context, f simulation.ListFilter) (runs []*simulation.Run, total int64, err error) {
	defer func(start time.Time) { r.observe("run_list", start, err) }(time.Now())
	f = f.Normalize()

	rows, err := r.db.Query(ctx, `
		SELECT `+runColumns+`, COUNT(*) OVER() AS total
		FROM simulation_runs
		WHERE ($1 = '' OR kind = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		string(f.Kind), string(f.Status), f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "list simulation runs")
	}
	defer rows.Close()

	runs = []*simulation.Run{}
	for rows.Next() {
		run, err := scanRun(rows, &total)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan simulation run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "list simulation runs")
	}
	return runs, total, nil
}

func scanRun(row pgx.Row, extra ...any) (*simulation.Run, error) {
	var (
		run     simulation.Run
		kind    string
		status  string
		metrics []byte
	)
	dest := []any{
		&run.ID, &kind, &run.Mode, &status, &run.Input.MassingData, &run.Input.ContextData, &run.IsSuccess,
		&metrics, &run.Summary, &run.ArtifactKey, &run.RequestID, &run.CreatedAt, &run.StartedAt, &run.FinishedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	run.Kind = simulation.Kind(kind)
	run.Status = simulation.Status(status)
	run.Metrics = map[string]float64{}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &run.Metrics); err != nil {
			return nil, err
		}
	}
	return &run, nil
}

//Personal.AI order the ending
