package engine

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// transformer compiles and caches the CEL value-transform programs declared
// in field rules. An expression sees the condition value as `value`.
type transformer struct {
	mu       sync.Mutex
	env      *cel.Env
	programs map[string]cel.Program
}

func newTransformer() (*transformer, error) {
	env, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable("value", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel environment: %w", err)
	}
	return &transformer{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// apply evaluates expr against a single value.
func (t *transformer) apply(expr string, value any) (any, error) {
	prg, err := t.program(expr)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(map[string]any{"value": value})
	if err != nil {
		return nil, fmt.Errorf("evaluate transform: %w", err)
	}
	return out.Value(), nil
}

// applyAll evaluates expr element-wise over list values, or once otherwise.
func (t *transformer) applyAll(expr string, value any) (any, error) {
	list, ok := value.([]any)
	if !ok {
		return t.apply(expr, value)
	}

	out := make([]any, len(list))
	for i, item := range list {
		transformed, err := t.apply(expr, item)
		if err != nil {
			return nil, err
		}
		out[i] = transformed
	}
	return out, nil
}

func (t *transformer) program(expr string) (cel.Program, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prg, ok := t.programs[expr]; ok {
		return prg, nil
	}

	ast, issues := t.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile transform: %w", issues.Err())
	}

	prg, err := t.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build transform program: %w", err)
	}

	t.programs[expr] = prg
	return prg, nil
}
