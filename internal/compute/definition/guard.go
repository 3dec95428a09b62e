package definition

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// guardCostLimit bounds the work a single guard evaluation may do.
const guardCostLimit = 100000

// Guard is a compiled boolean CEL expression over a run's metrics, e.g.
// "metrics.max_wind_speed < 15.0".
type Guard struct {
	expr string
	prg  cel.Program
}

var guardEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Variable("metrics", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("kind", cel.StringType),
	)
	if err != nil {
		panic(fmt.Sprintf("definition: build guard environment: %v", err))
	}
	guardEnv = env
}

// CompileGuard parses and type-checks expr.  The expression must yield a bool.
func CompileGuard(expr string) (*Guard, error) {
	ast, issues := guardEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("definition: compile guard %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("definition: guard %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	prg, err := guardEnv.Program(ast, cel.CostLimit(guardCostLimit))
	if err != nil {
		return nil, fmt.Errorf("definition: build guard %q: %w", expr, err)
	}
	return &Guard{expr: expr, prg: prg}, nil
}

// Expression returns the source text of the guard.
func (g *Guard) Expression() string { return g.expr }

// Check evaluates the guard.  A nil guard always passes.  Evaluation errors
// (for example a missing metric key) are returned with ok=false.
func (g *Guard) Check(kind string, metrics map[string]float64) (bool, error) {
	if g == nil {
		return true, nil
	}
	if metrics == nil {
		metrics = map[string]float64{}
	}
	out, _, err := g.prg.Eval(map[string]interface{}{
		"metrics": metrics,
		"kind":    kind,
	})
	if err != nil {
		return false, fmt.Errorf("definition: evaluate guard %q: %w", g.expr, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("definition: guard %q returned %T", g.expr, out.Value())
	}
	return ok, nil
}

//Personal.AI order the ending
