package dataset

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

// ScanRows reads every row of rows into a Dataset. Column kinds come from
// the driver's declared database types, falling back to the first non-null
// value of each column.
func ScanRows(name string, rows *sql.Rows) (*core.Dataset, error) {
	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	kinds := make([]core.FieldKind, len(cols))
	for i, c := range cols {
		kinds[i] = kindForType(c.DatabaseTypeName())
	}

	var raw [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(raw), err)
		}
		raw = append(raw, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	for i := range kinds {
		if kinds[i] != "" {
			continue
		}
		kinds[i] = core.KindString
		for _, r := range raw {
			if r[i] != nil {
				kinds[i] = kindForValue(r[i])
				break
			}
		}
	}

	fields := make([]core.Field, len(cols))
	for i, c := range cols {
		fields[i] = core.Field{Name: c.Name(), Kind: kinds[i]}
	}
	schema, err := core.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}

	ds := &core.Dataset{
		Name:     name,
		Schema:   schema,
		Records:  make([]core.Record, 0, len(raw)),
		LoadedAt: time.Now().UTC(),
	}
	for n, r := range raw {
		for i := range r {
			r[i] = normalize(r[i], kinds[i])
		}
		rec, err := core.NewRecord(schema, r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// kindForType maps a driver type name to a field kind. Unknown names map
// to "" so the caller can inspect values instead.
func kindForType(dbType string) core.FieldKind {
	t := strings.ToUpper(dbType)
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	switch strings.TrimSpace(t) {
	case "INTEGER", "INT", "INT2", "INT4", "INT8", "BIGINT", "SMALLINT", "TINYINT", "HUGEINT",
		"UBIGINT", "UINTEGER", "USMALLINT", "UTINYINT",
		"REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DECIMAL", "NUMERIC":
		return core.KindNumber
	case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "STRING", "BOOLEAN", "BOOL", "UUID":
		return core.KindString
	case "DATE", "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return core.KindTime
	}
	return ""
}

func kindForValue(v any) core.FieldKind {
	switch v.(type) {
	case time.Time:
		return core.KindTime
	case string, []byte, bool:
		return core.KindString
	}
	if _, ok := core.ToFloat(v); ok {
		return core.KindNumber
	}
	return core.KindString
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// normalize converts driver values to the representation implied by kind:
// float64 or int64 numbers, strings, and time.Time.
func normalize(v any, kind core.FieldKind) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch kind {
	case core.KindNumber:
		switch n := v.(type) {
		case int64, float64:
			return n
		case string:
			if i, err := strconv.ParseInt(n, 10, 64); err == nil {
				return i
			}
		}
		if f, ok := core.ToFloat(v); ok {
			return f
		}
	case core.KindTime:
		if s, ok := v.(string); ok {
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t
				}
			}
		}
	case core.KindString:
		if s, ok := v.(string); ok {
			return s
		}
		return core.FormatValue(v)
	}
	return v
}
