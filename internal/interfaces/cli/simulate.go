package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/Massing-Sim/internal/domain/simulation"
	"github.com/turtacn/Massing-Sim/pkg/errors"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

type massingOptions struct {
	index        int
	buildingArea float64
	floorCount   int
	plotRatio    float64
}

// NewMassingCmd creates the massing command.
func NewMassingCmd() *cobra.Command {
	opts := &massingOptions{}
	cmd := &cobra.Command{
		Use:   "massing",
		Short: "Generate a building massing scheme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMassing(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.index, "index", 0, "scheme index")
	f.Float64Var(&opts.buildingArea, "building-area", 0, "gross building area in m2")
	f.IntVar(&opts.floorCount, "floor-count", types.DefaultFloorCount, "number of floors")
	f.Float64Var(&opts.plotRatio, "plot-ratio", types.DefaultPlotRatio, "plot ratio")
	return cmd
}

func runMassing(cmd *cobra.Command, opts *massingOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	c, err := cliCtx.apiClient()
	if err != nil {
		return err
	}

	// Flag defaults are sent explicitly; a nil pointer would reach the server
	// as null and pick the null fallback instead.
	in := types.MassingToolInput{
		Index:      opts.index,
		FloorCount: &opts.floorCount,
		PlotRatio:  &opts.plotRatio,
	}
	if cmd.Flags().Changed("building-area") {
		in.BuildingArea = &opts.buildingArea
	}

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()
	out, err := c.GenerateMassing(ctx, in)
	if err != nil {
		return err
	}
	return PrintResult(cmd, massingResult{out})
}

type massingResult struct {
	*types.MassingToolOutput
}

func (r massingResult) JSONValue() interface{} { return r.MassingToolOutput }

func (r massingResult) String() string {
	return fmt.Sprintf("status:      %s\ngeometry:    %s\ndescription: %s\n",
		colorStatus(r.Status), r.GeometryData, r.Description)
}

type simulateOptions struct {
	massingData  string
	massingFile  string
	contextData  string
	async        bool
	wait         bool
	pollInterval time.Duration
	heatmapOut   string
}

// NewSimulateCmd creates the simulate command.
func NewSimulateCmd() *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate <wind|sunlight|thermal>",
		Short: "Run a wind, sunlight or thermal simulation",
		Long: "Run a simulation synchronously and print its metrics, or queue it with\n" +
			"--async and optionally --wait for the stored run to finish.",
		Example: "  msim simulate wind --massing-file tower.json --heatmap-out wind.png\n" +
			"  msim simulate thermal --async --wait",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.massingData, "massing-data", "", "serialized massing geometry")
	f.StringVar(&opts.massingFile, "massing-file", "", "read massing geometry from a file")
	f.StringVar(&opts.contextData, "context-data", "", "serialized site context")
	f.BoolVar(&opts.async, "async", false, "queue the simulation and return the run id")
	f.BoolVar(&opts.wait, "wait", false, "with --async, poll until the run finishes")
	f.DurationVar(&opts.pollInterval, "poll-interval", 2*time.Second, "polling interval for --wait")
	f.StringVar(&opts.heatmapOut, "heatmap-out", "", "write the heatmap PNG to this file")
	cmd.MarkFlagsMutuallyExclusive("massing-data", "massing-file")
	return cmd
}

func runSimulate(cmd *cobra.Command, kindArg string, opts *simulateOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	kind, err := simulation.ParseKind(strings.ToLower(kindArg))
	if err != nil {
		return errors.New(errors.ErrCodeUnknownSimulationKind, err.Error())
	}
	if opts.wait && !opts.async {
		return errors.New(errors.ErrCodeBadRequest, "--wait requires --async")
	}
	if opts.async && opts.heatmapOut != "" {
		return errors.New(errors.ErrCodeBadRequest, "--heatmap-out cannot be used with --async")
	}

	in := types.SimulationInput{MassingData: opts.massingData, ContextData: opts.contextData, SimType: string(kind)}
	if opts.massingFile != "" {
		raw, err := os.ReadFile(opts.massingFile)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeBadRequest, "read massing file")
		}
		in.MassingData = string(raw)
	}

	c, err := cliCtx.apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	if !opts.async {
		out, err := c.Simulate(ctx, string(kind), in)
		if err != nil {
			return err
		}
		if opts.heatmapOut != "" {
			if err := writeHeatmap(opts.heatmapOut, out.HeatmapImage); err != nil {
				return err
			}
			cliCtx.Logger.Info("heatmap written: " + opts.heatmapOut)
		}
		return PrintResult(cmd, simulationResult{out})
	}

	sub, err := c.SubmitSimulation(ctx, string(kind), in)
	if err != nil {
		return err
	}
	if !opts.wait {
		return PrintResult(cmd, submitResult{sub})
	}

	interval := opts.pollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		run, err := c.GetRun(ctx, sub.RunID)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "gave up waiting for run "+sub.RunID)
			}
			return err
		}
		if simulation.Status(run.Status).Terminal() {
			return PrintResult(cmd, runDetail{run})
		}
		cliCtx.Logger.Debug("run not finished: " + run.Status)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "gave up waiting for run "+sub.RunID)
		}
	}
}

func writeHeatmap(path, encoded string) error {
	if encoded == "" {
		return errors.New(errors.ErrCodeArtifactMissing, "simulation returned no heatmap")
	}
	png, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArtifactMissing, "heatmap is not valid base64")
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "write heatmap")
	}
	return nil
}

type simulationResult struct {
	*types.SimulationToolOutput
}

func (r simulationResult) JSONValue() interface{} { return r.SimulationToolOutput }

func (r simulationResult) TableHeaders() []string { return []string{"Metric", "Value"} }

func (r simulationResult) TableRows() [][]string {
	return metricRows(r.Metrics)
}

func (r simulationResult) String() string {
	status := colorStatus("succeeded")
	if !r.IsSuccess {
		status = colorStatus("failed")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", status, r.Summary)
	for _, row := range metricRows(r.Metrics) {
		fmt.Fprintf(&sb, "  %s = %s\n", row[0], row[1])
	}
	return sb.String()
}

func metricRows(metrics map[string]float64) [][]string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, fmt.Sprintf("%g", metrics[name])})
	}
	return rows
}

type submitResult struct {
	*types.SubmitResponse
}

func (r submitResult) JSONValue() interface{} { return r.SubmitResponse }

func (r submitResult) String() string {
	return fmt.Sprintf("run %s %s\n", r.RunID, colorStatus(r.Status))
}

//Personal.AI order the ending
