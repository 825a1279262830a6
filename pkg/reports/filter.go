package reports

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// Filter is a compiled boolean row predicate written in CEL, for example
// `row.Impact == "Isolated" && row.STATUS != "Inactive"`.
type Filter struct {
	expr    string
	program cel.Program
}

// CompileFilter parses and type-checks expr. An empty expression yields a
// nil Filter, which keeps every row.
func CompileFilter(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("row", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filter compilation error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter must evaluate to bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filter program creation error: %w", err)
	}
	return &Filter{expr: expr, program: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Apply returns the rows of t for which the filter holds.
func (f *Filter) Apply(t *table.Table) (*table.Table, error) {
	if f == nil {
		return t, nil
	}
	var keep []int
	for r := 0; r < t.Len(); r++ {
		out, _, err := f.program.Eval(map[string]any{"row": t.Record(r)})
		if err != nil {
			return nil, fmt.Errorf("filter evaluation failed on row %d: %w", r, err)
		}
		if match, ok := out.Value().(bool); ok && match {
			keep = append(keep, r)
		}
	}
	return t.Select(keep), nil
}
