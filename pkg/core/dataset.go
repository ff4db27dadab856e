package core

import (
	"fmt"
	"strconv"
	"time"
)

// FieldKind classifies the values held by a column.
type FieldKind string

// Field kinds.
const (
	KindNumber FieldKind = "number"
	KindString FieldKind = "string"
	KindTime   FieldKind = "time"
)

// Field is a named, typed column of a Dataset.
type Field struct {
	Name string
	Kind FieldKind
}

// Schema is the ordered set of fields shared by every record of a dataset.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from fields. Duplicate names are rejected.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d has no name", i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		s.fields[i] = f
		s.index[f.Name] = i
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. Intended for fixed,
// compiled-in schemas and tests.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns a copy of the schema fields in column order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Lookup returns the position and definition of a field.
func (s *Schema) Lookup(name string) (int, Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return -1, Field{}, false
	}
	return i, s.fields[i], true
}

// Names returns the field names in column order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// NamesOfKind returns the names of all fields with the given kind.
func (s *Schema) NamesOfKind(kind FieldKind) []string {
	var out []string
	for _, f := range s.fields {
		if f.Kind == kind {
			out = append(out, f.Name)
		}
	}
	return out
}

// Record is one immutable row of a Dataset.
type Record struct {
	schema *Schema
	values []any
}

// NewRecord creates a record for schema. The values slice is copied.
func NewRecord(schema *Schema, values []any) (Record, error) {
	if schema == nil {
		return Record{}, fmt.Errorf("record requires a schema")
	}
	if len(values) != schema.Len() {
		return Record{}, fmt.Errorf("record has %d values, schema has %d fields", len(values), schema.Len())
	}
	v := make([]any, len(values))
	copy(v, values)
	return Record{schema: schema, values: v}, nil
}

// Schema returns the record's schema.
func (r Record) Schema() *Schema { return r.schema }

// Value returns the raw value of a field and whether the field exists.
func (r Record) Value(name string) (any, bool) {
	if r.schema == nil {
		return nil, false
	}
	i, _, ok := r.schema.Lookup(name)
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Float returns a numeric field as float64.
func (r Record) Float(name string) (float64, bool) {
	v, ok := r.Value(name)
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// String returns a field formatted as text.
func (r Record) String(name string) string {
	v, ok := r.Value(name)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Values returns a copy of the record values in column order.
func (r Record) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// Dataset is an ordered sequence of records sharing a schema.
// Datasets are never mutated after load; a reload produces a new Dataset.
type Dataset struct {
	Name     string
	Schema   *Schema
	Records  []Record
	LoadedAt time.Time
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Subset returns the records of the dataset matching keep, in dataset order.
func (d *Dataset) Subset(keep func(Record) bool) RowSubset {
	var out RowSubset
	if d == nil {
		return out
	}
	for i, r := range d.Records {
		if keep == nil || keep(r) {
			out.Rows = append(out.Rows, r)
			out.Indices = append(out.Indices, i)
		}
	}
	return out
}

// All returns every record of the dataset as a subset.
func (d *Dataset) All() RowSubset {
	return d.Subset(nil)
}

// RowSubset is an ordered selection of records together with their row
// positions in the originating dataset.
type RowSubset struct {
	Rows    []Record
	Indices []int
}

// Len returns the number of rows.
func (s RowSubset) Len() int { return len(s.Rows) }

// Empty reports whether the subset has no rows.
func (s RowSubset) Empty() bool { return len(s.Rows) == 0 }

// Append adds a record and its dataset index.
func (s *RowSubset) Append(r Record, index int) {
	s.Rows = append(s.Rows, r)
	s.Indices = append(s.Indices, index)
}

// Floats extracts a numeric field from every row. Rows where the field is
// missing or not numeric are skipped.
func (s RowSubset) Floats(field string) []float64 {
	out := make([]float64, 0, len(s.Rows))
	for _, r := range s.Rows {
		if f, ok := r.Float(field); ok {
			out = append(out, f)
		}
	}
	return out
}

// ToFloat converts a scanned value to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FormatValue renders a value as display text.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", t)
	}
}
