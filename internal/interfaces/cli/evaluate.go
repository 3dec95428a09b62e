package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/Massing-Sim/internal/application/evaluation"
	"github.com/turtacn/Massing-Sim/internal/compute/datatree"
	"github.com/turtacn/Massing-Sim/internal/compute/definition"
	"github.com/turtacn/Massing-Sim/internal/compute/rhino"
	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/pkg/errors"
	types "github.com/turtacn/Massing-Sim/pkg/types/simulation"
)

type evaluateOptions struct {
	params     []string
	paramsFile string
	direct     bool
}

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate <definition>",
		Short: "Evaluate a Grasshopper definition with raw parameters",
		Long: "Evaluate a catalog definition (wind, sunlight, thermal, massing) or a .gh file.\n" +
			"Values given with --param are parsed as JSON when possible, so 3, true and\n" +
			"[1,2] are sent as a number, a boolean and a list; anything else is a string.\n" +
			"With --direct the definition runs on Rhino Compute from compute.* config\n" +
			"without going through the API server.",
		Example: "  msim evaluate wind --param floors=5 --param heights=[3,3.5]\n" +
			"  msim evaluate ./defs/custom.gh --params-file params.json --direct",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "input as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.paramsFile, "params-file", "", "JSON object of inputs; --param entries override it")
	cmd.Flags().BoolVar(&opts.direct, "direct", false, "call Rhino Compute directly instead of the API server")
	return cmd
}

func runEvaluate(cmd *cobra.Command, def string, opts *evaluateOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	params, err := collectParams(opts.paramsFile, opts.params)
	if err != nil {
		return err
	}
	req := types.EvaluateRequest{Definition: def, Params: params}

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	var resp *types.EvaluateResponse
	if opts.direct {
		svc, closeFn, err := directEvaluator(cliCtx)
		if err != nil {
			return err
		}
		defer closeFn()
		resp, err = svc.Evaluate(ctx, &req)
		if err != nil {
			return err
		}
	} else {
		c, err := cliCtx.apiClient()
		if err != nil {
			return err
		}
		resp, err = c.Evaluate(ctx, req)
		if err != nil {
			return err
		}
	}

	outputs, err := decodeOutputs(resp.Values)
	if err != nil {
		return err
	}
	return PrintResult(cmd, evaluateResult{resp: resp, outputs: outputs})
}

// directEvaluator builds the same evaluation service the server uses, bound
// to the compute section of the loaded config.
func directEvaluator(cliCtx *CLIContext) (evaluation.Service, func(), error) {
	cc := cliCtx.Config.Compute
	catalog, err := definition.LoadCatalog(cc.CatalogPath)
	if err != nil {
		return nil, nil, err
	}
	// The operator names local files and URLs directly, so unlike the
	// server the CLI accepts absolute paths and any pointer host.
	resolver := definition.NewDefaultResolver(cc.AppDir).WithPolicy(definition.Policy{
		AllowAbsolute: true,
		PointerHosts:  []string{definition.AnyHost},
	})
	rc, err := rhino.NewHTTPClient(rhino.ConfigFrom(cc), resolver, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	return evaluation.NewService(config.ModeCompute, rc, catalog, cliCtx.Logger), func() { _ = rc.Close() }, nil
}

// collectParams merges the params file with name=value flags.
func collectParams(file string, flags []string) (map[string]interface{}, error) {
	params := map[string]interface{}{}
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "read params file")
		}
		if err := unmarshalNumbers(raw, &params); err != nil {
			return nil, errors.New(errors.ErrCodeBadRequest, "params file must hold a JSON object").WithDetail(err.Error())
		}
	}
	for _, kv := range flags {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.New(errors.ErrCodeBadRequest, "invalid --param").WithDetail(fmt.Sprintf("%q is not name=value", kv))
		}
		params[name] = parseParamValue(value)
	}
	return params, nil
}

// parseParamValue decodes JSON scalars and lists and keeps anything else as a
// string.
func parseParamValue(s string) interface{} {
	var v interface{}
	if err := unmarshalNumbers([]byte(s), &v); err == nil {
		switch v.(type) {
		case json.Number, bool, string, []interface{}:
			return v
		}
	}
	return s
}

// unmarshalNumbers decodes one JSON value, keeping numbers as json.Number
// so their literal reaches the engine unchanged.
func unmarshalNumbers(raw []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after the JSON value")
	}
	return nil
}

type namedOutput struct {
	Name   string
	Values []interface{}
}

// decodeOutputs reads the {name: [values]} mapping.  Key order is lost in a
// map, so outputs come back sorted by name.
func decodeOutputs(raw json.RawMessage) ([]namedOutput, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string][]interface{}
	if err := unmarshalNumbers(raw, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode evaluation outputs")
	}
	out := make([]namedOutput, 0, len(m))
	for name, vs := range m {
		out = append(out, namedOutput{Name: name, Values: vs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type evaluateResult struct {
	resp    *types.EvaluateResponse
	outputs []namedOutput
}

func (r evaluateResult) JSONValue() interface{} { return r.resp }

func (r evaluateResult) TableHeaders() []string { return []string{"Output", "Count", "Values"} }

func (r evaluateResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.outputs))
	for _, o := range r.outputs {
		texts := make([]string, len(o.Values))
		for i, v := range o.Values {
			texts[i] = fmt.Sprint(v)
		}
		rows = append(rows, []string{o.Name, fmt.Sprint(len(o.Values)), truncateString(strings.Join(texts, ", "), 60)})
	}
	return rows
}

func (r evaluateResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "definition %s evaluated in %dms\n", r.resp.Definition, r.resp.DurationMs)
	for _, o := range r.outputs {
		fmt.Fprintf(&sb, "  %s: %v\n", o.Name, o.Values)
	}
	return sb.String()
}

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <response.json|->",
		Short: "Flatten a saved Rhino Compute response into name -> values",
		Long: "Parse a raw Grasshopper evaluation body, as returned by Rhino Compute, and\n" +
			"print every output with the values of all its branches.  Reads stdin for -.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0])
		},
	}
}

func runParse(cmd *cobra.Command, path string) error {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "read response")
	}
	res, err := datatree.DecodeResult(raw)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidComputeResponse, "invalid compute response")
	}
	if cliCtx, cerr := GetCLIContext(cmd); cerr == nil {
		for _, w := range res.Warnings {
			cliCtx.Logger.Warn("compute warning: " + w)
		}
	}
	return PrintResult(cmd, parseResult{parsed: datatree.ParseData(res), errs: res.Errors})
}

type parseResult struct {
	parsed *datatree.Parsed
	errs   []string
}

func (r parseResult) JSONValue() interface{} { return r.parsed }

func (r parseResult) TableHeaders() []string { return []string{"Output", "Count", "Values"} }

func (r parseResult) TableRows() [][]string {
	names := r.parsed.Names()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		texts := r.parsed.Strings(name)
		rows = append(rows, []string{name, fmt.Sprint(len(texts)), truncateString(strings.Join(texts, ", "), 60)})
	}
	return rows
}

func (r parseResult) String() string {
	var sb strings.Builder
	for _, e := range r.errs {
		fmt.Fprintf(&sb, "error: %s\n", e)
	}
	for _, name := range r.parsed.Names() {
		fmt.Fprintf(&sb, "%s: [%s]\n", name, strings.Join(r.parsed.Strings(name), ", "))
	}
	return sb.String()
}

//Personal.AI order the ending
