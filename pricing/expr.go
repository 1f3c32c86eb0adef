package pricing

import (
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// Expression conditions let admins write triggers the structured variants
// cannot express ("rainy weekday lunch rush"). Programs are compiled once
// per distinct expression and cached; compilation or evaluation failure
// means the condition never matches, keeping Evaluate total.

// maxCachedPrograms bounds the compiled-program cache. Draft validation
// feeds it one entry per distinct expression an admin types, so the map
// resets once full instead of growing for the life of the process.
const maxCachedPrograms = 256

var (
	exprEnvOnce sync.Once
	exprEnv     *cel.Env
	exprEnvErr  error

	exprMu       sync.RWMutex
	exprPrograms = map[string]cel.Program{}
)

// contextEnv declares the snapshot fields visible to expressions.
func contextEnv() (*cel.Env, error) {
	exprEnvOnce.Do(func() {
		exprEnv, exprEnvErr = cel.NewEnv(
			cel.Variable("occupancy", cel.DoubleType),
			cel.Variable("orderVolume", cel.IntType),
			cel.Variable("weather", cel.StringType),
			cel.Variable("temperature", cel.DoubleType),
			cel.Variable("hasTemperature", cel.BoolType),
			cel.Variable("now", cel.TimestampType),
		)
	})
	return exprEnv, exprEnvErr
}

// CompileExpression compiles a CEL trigger expression, returning any
// compilation error. Used by validation so malformed expressions are
// rejected at rule-creation time instead of silently never matching.
func CompileExpression(expr string) error {
	_, err := compiledProgram(expr)
	return err
}

func compiledProgram(expr string) (cel.Program, error) {
	exprMu.RLock()
	prog, ok := exprPrograms[expr]
	exprMu.RUnlock()
	if ok {
		return prog, nil
	}

	env, err := contextEnv()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	// Cost limit guards against runaway admin-authored expressions.
	prog, err = env.Program(ast, cel.CostLimit(1000000))
	if err != nil {
		return nil, err
	}

	exprMu.Lock()
	if len(exprPrograms) >= maxCachedPrograms {
		exprPrograms = map[string]cel.Program{}
	}
	exprPrograms[expr] = prog
	exprMu.Unlock()

	return prog, nil
}

func evaluateExpression(c ExpressionCondition, ctx ContextSnapshot) bool {
	if strings.TrimSpace(c.Expr) == "" {
		return false
	}

	prog, err := compiledProgram(c.Expr)
	if err != nil {
		return false
	}

	temperature := 0.0
	hasTemperature := ctx.TemperatureF != nil
	if hasTemperature {
		temperature = *ctx.TemperatureF
	}

	out, _, err := prog.Eval(map[string]any{
		"occupancy":      ctx.OccupancyPct,
		"orderVolume":    int64(ctx.OrderVolume),
		"weather":        ctx.WeatherCondition,
		"temperature":    temperature,
		"hasTemperature": hasTemperature,
		"now":            ctx.Now,
	})
	if err != nil {
		return false
	}

	matched, ok := out.Value().(bool)
	return ok && matched
}
