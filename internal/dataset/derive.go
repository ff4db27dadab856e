package dataset

import (
	"context"
	"fmt"
	"slices"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

// fileOptions are the Starlark dialect used for derived columns.
var fileOptions = &syntax.FileOptions{}

// DerivedColumn is a column computed per row from a Starlark expression
// over the row's loaded fields, such as "close - open" or
// "'up' if close >= open else 'down'".
type DerivedColumn struct {
	Name string
	Expr string

	compiled syntax.Expr
}

// ParseDerived compiles the derive section of a dataset configuration.
// Columns are ordered by name.
func ParseDerived(exprs map[string]string) ([]DerivedColumn, error) {
	names := make([]string, 0, len(exprs))
	for name := range exprs {
		names = append(names, name)
	}
	slices.Sort(names)

	cols := make([]DerivedColumn, 0, len(names))
	for _, name := range names {
		expr, err := fileOptions.ParseExpr(name, exprs[name], 0)
		if err != nil {
			return nil, fmt.Errorf("derived column %s: %w", name, err)
		}
		cols = append(cols, DerivedColumn{Name: name, Expr: exprs[name], compiled: expr})
	}
	return cols, nil
}

// DeriveLoader appends derived columns to the dataset of another loader.
// Expressions see the loaded fields only, not other derived columns.
type DeriveLoader struct {
	Inner   Loader
	Columns []DerivedColumn
}

// Load loads the inner dataset and evaluates every derived column.
func (l *DeriveLoader) Load(ctx context.Context) (*core.Dataset, error) {
	ds, err := l.Inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(l.Columns) == 0 {
		return ds, nil
	}

	base := ds.Schema.Fields()
	values := make([][]any, len(ds.Records))
	for i, rec := range ds.Records {
		values[i] = rec.Values()
	}

	thread := &starlark.Thread{Name: "derive " + ds.Name}
	fields := base
	for _, col := range l.Columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kind, err := l.evaluate(thread, ds, col, values)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", ds.Name, err)
		}
		fields = append(fields, core.Field{Name: col.Name, Kind: kind})
	}

	schema, err := core.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", ds.Name, err)
	}
	out := &core.Dataset{
		Name:     ds.Name,
		Schema:   schema,
		Records:  make([]core.Record, len(values)),
		LoadedAt: ds.LoadedAt,
	}
	for i, v := range values {
		if out.Records[i], err = core.NewRecord(schema, v); err != nil {
			return nil, fmt.Errorf("dataset %s: row %d: %w", ds.Name, i, err)
		}
	}
	return out, nil
}

// evaluate appends the column's value to every row and returns its kind:
// the kind of the first non-None result, or string when all are None.
func (l *DeriveLoader) evaluate(thread *starlark.Thread, ds *core.Dataset, col DerivedColumn, values [][]any) (core.FieldKind, error) {
	var kind core.FieldKind
	for i, rec := range ds.Records {
		v, err := starlark.EvalExprOptions(fileOptions, thread, col.compiled, rowEnv(rec))
		if err != nil {
			return "", fmt.Errorf("derived column %s: row %d: %w", col.Name, i, err)
		}
		val, k, err := fromStarlark(v)
		if err != nil {
			return "", fmt.Errorf("derived column %s: row %d: %w", col.Name, i, err)
		}
		if k != "" {
			if kind != "" && k != kind {
				return "", fmt.Errorf("derived column %s: row %d is %s, earlier rows are %s", col.Name, i, k, kind)
			}
			kind = k
		}
		values[i] = append(values[i], val)
	}
	if kind == "" {
		kind = core.KindString
	}
	return kind, nil
}

func rowEnv(rec core.Record) starlark.StringDict {
	schema := rec.Schema()
	env := make(starlark.StringDict, schema.Len())
	for _, f := range schema.Fields() {
		v, _ := rec.Value(f.Name)
		env[f.Name] = toStarlark(v, f.Kind)
	}
	return env
}

func toStarlark(v any, kind core.FieldKind) starlark.Value {
	if v == nil {
		return starlark.None
	}
	switch n := v.(type) {
	case int64:
		return starlark.MakeInt64(n)
	case int:
		return starlark.MakeInt(n)
	}
	if kind == core.KindNumber {
		if f, ok := core.ToFloat(v); ok {
			return starlark.Float(f)
		}
	}
	return starlark.String(core.FormatValue(v))
}

func fromStarlark(v starlark.Value) (any, core.FieldKind, error) {
	switch t := v.(type) {
	case starlark.NoneType:
		return nil, "", nil
	case starlark.Float:
		return float64(t), core.KindNumber, nil
	case starlark.Int:
		if i, ok := t.Int64(); ok {
			return i, core.KindNumber, nil
		}
		return float64(t.Float()), core.KindNumber, nil
	case starlark.Bool:
		if t {
			return "true", core.KindString, nil
		}
		return "false", core.KindString, nil
	case starlark.String:
		return string(t), core.KindString, nil
	}
	return nil, "", fmt.Errorf("unsupported result type %s", v.Type())
}
