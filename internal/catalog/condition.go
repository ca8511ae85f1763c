package catalog

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// conditionCostLimit bounds evaluation of a single eligibility expression.
const conditionCostLimit = 100000

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

// conditionEnv declares the facts a coupon condition can reference.
func conditionEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable("subtotal", cel.IntType),
			cel.Variable("item_count", cel.IntType),
			cel.Variable("shops", cel.ListType(cel.StringType)),
			cel.Variable("categories", cel.ListType(cel.StringType)),
		)
	})
	return env, envErr
}

// condition is a compiled CEL eligibility predicate.
type condition struct {
	expr string
	prog cel.Program
}

func compileCondition(expr string) (*condition, error) {
	e, err := conditionEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must evaluate to bool, got %s", ast.OutputType())
	}

	prog, err := e.Program(ast, cel.CostLimit(conditionCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return &condition{expr: expr, prog: prog}, nil
}

// eval reports whether the facts satisfy the condition. Evaluation errors count as not eligible.
func (c *condition) eval(f Facts) bool {
	out, _, err := c.prog.Eval(map[string]any{
		"subtotal":   int64(f.Subtotal),
		"item_count": int64(f.ItemCount),
		"shops":      f.Shops,
		"categories": f.Categories,
	})
	if err != nil {
		return false
	}
	matched, ok := out.Value().(bool)
	return ok && matched
}
