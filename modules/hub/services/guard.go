package services

import (
	"errors"
	"strconv"
	"sync"

	"github.com/google/cel-go/cel"
)

var newGuardCELEnv = func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("op", cel.MapType(cel.StringType, cel.StringType)))
}

var guardProgramCache sync.Map

func compileGuard(expr string) (cel.Program, error) {
	if cached, ok := guardProgramCache.Load(expr); ok {
		return cached.(cel.Program), nil
	}

	env, err := newGuardCELEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if ast.OutputType() != cel.BoolType {
		return nil, errors.New("guard expression must evaluate to bool")
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	guardProgramCache.Store(expr, prg)
	return prg, nil
}

// evalGuard runs a rule guard against the operation context. Any compile or
// evaluation failure denies, matching the default-deny posture of the rule
// table itself.
func evalGuard(expr string, opCtx map[string]string) bool {
	prg, err := compileGuard(expr)
	if err != nil {
		return false
	}
	out, _, err := prg.Eval(map[string]any{"op": opCtx})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false
	}
	return b
}

func guardContext(target string, selector string, subjectKey string, maxCost int64, relayOperator string) map[string]string {
	return map[string]string{
		"target":         target,
		"selector":       selector,
		"subject_key":    subjectKey,
		"max_cost":       strconv.FormatInt(maxCost, 10),
		"relay_operator": relayOperator,
	}
}
