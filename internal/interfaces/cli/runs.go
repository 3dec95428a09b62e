package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/Massing-Sim/pkg/types/common"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

type runsListOptions struct {
	kind   string
	status string
	limit  int
	offset int
}

// NewRunsCmd creates the runs command group.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored simulation runs",
	}

	opts := &runsListOptions{}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(cmd, opts)
		},
	}
	listCmd.Flags().StringVar(&opts.kind, "kind", "", "filter by kind (wind, sunlight, thermal)")
	listCmd.Flags().StringVar(&opts.status, "status", "", "filter by status (pending, running, succeeded, failed)")
	listCmd.Flags().IntVar(&opts.limit, "limit", 20, "page size")
	listCmd.Flags().IntVar(&opts.offset, "offset", 0, "page offset")

	getCmd := &cobra.Command{
		Use:   "get <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsGet(cmd, args[0])
		},
	}

	cmd.AddCommand(listCmd, getCmd)
	return cmd
}

func runRunsList(cmd *cobra.Command, opts *runsListOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	c, err := cliCtx.apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	page, err := c.ListRuns(ctx, types.ListRunsRequest{
		Kind:   strings.ToLower(opts.kind),
		Status: strings.ToLower(opts.status),
		Limit:  opts.limit,
		Offset: opts.offset,
	})
	if err != nil {
		return err
	}
	return PrintResult(cmd, runList{page})
}

func runRunsGet(cmd *cobra.Command, id string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	c, err := cliCtx.apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	run, err := c.GetRun(ctx, id)
	if err != nil {
		return err
	}
	return PrintResult(cmd, runDetail{run})
}

type runList struct {
	*types.ListRunsResponse
}

func (l runList) JSONValue() interface{} { return l.ListRunsResponse }

func (l runList) TableHeaders() []string {
	return []string{"ID", "Kind", "Mode", "Status", "Duration", "Created"}
}

func (l runList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Items))
	for _, r := range l.Items {
		rows = append(rows, []string{
			r.ID,
			r.Kind,
			r.Mode,
			colorStatus(r.Status),
			(time.Duration(r.DurationMs) * time.Millisecond).String(),
			r.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func (l runList) String() string {
	var sb strings.Builder
	sb.WriteString(FormatTable(l.TableHeaders(), l.TableRows()))
	fmt.Fprintf(&sb, "showing %d of %d", len(l.Items), l.Total)
	if l.HasMore() {
		fmt.Fprintf(&sb, " (next: --offset %d)", l.Offset+len(l.Items))
	}
	sb.WriteString("\n")
	return sb.String()
}

type runDetail struct {
	*types.RunResponse
}

func (d runDetail) JSONValue() interface{} { return d.RunResponse }

func (d runDetail) TableHeaders() []string { return []string{"Field", "Value"} }

func (d runDetail) TableRows() [][]string {
	rows := [][]string{
		{"id", d.ID},
		{"kind", d.Kind},
		{"mode", d.Mode},
		{"status", colorStatus(d.Status)},
		{"summary", d.Summary},
		{"created", d.CreatedAt.Local().Format(time.DateTime)},
	}
	if d.FinishedAt != nil {
		rows = append(rows, []string{"finished", d.FinishedAt.Local().Format(time.DateTime)})
	}
	if d.ArtifactURL != "" {
		rows = append(rows, []string{"heatmap", d.ArtifactURL})
	}
	for _, m := range metricRows(d.Metrics) {
		rows = append(rows, []string{"metric " + m[0], m[1]})
	}
	return rows
}

func (d runDetail) String() string {
	return FormatTable(d.TableHeaders(), d.TableRows())
}

// NewHealthCmd creates the health command.
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server liveness, dependency readiness and Rhino Compute status",
		Args:  cobra.NoArgs,
		RunE:  runHealth,
	}
}

type healthResult struct {
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Readiness common.HealthStatus      `json:"readiness"`
	Compute   string                   `json:"compute"`
	Mode      string                   `json:"mode"`
	Checks    []common.ComponentHealth `json:"components"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	c, err := cliCtx.apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	live, err := c.Health(ctx)
	if err != nil {
		return err
	}
	out := healthResult{Version: live.Version, Uptime: live.Uptime, Readiness: common.HealthUp}

	// A 503 from either probe is reported, not returned.
	if report, err := c.Readiness(ctx); err == nil {
		out.Readiness = report.Status
		out.Checks = report.Components
	} else {
		out.Readiness = common.HealthDown
		cliCtx.Logger.Debug("readiness probe failed: " + err.Error())
	}
	if ch, err := c.ComputeHealth(ctx); err == nil {
		out.Compute, out.Mode = ch.Status, ch.Mode
	} else {
		out.Compute = string(common.HealthDown)
	}
	return PrintResult(cmd, out)
}

func (h healthResult) TableHeaders() []string { return []string{"Component", "Status", "Latency", "Message"} }

func (h healthResult) TableRows() [][]string {
	rows := [][]string{{"compute", colorStatus(h.Compute), "", h.Mode}}
	for _, c := range h.Checks {
		rows = append(rows, []string{c.Name, colorStatus(string(c.Status)), fmt.Sprintf("%dms", c.LatencyMs), c.Message})
	}
	return rows
}

func (h healthResult) String() string {
	return fmt.Sprintf("server %s up %s, readiness %s\n%s",
		h.Version, h.Uptime, colorStatus(string(h.Readiness)), FormatTable(h.TableHeaders(), h.TableRows()))
}

//Personal.AI order the ending
