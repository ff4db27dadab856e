package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

// NewDataset builds a dataset from rows of values laid out like schema.
func NewDataset(t testing.TB, name string, schema *core.Schema, rows ...[]any) *core.Dataset {
	t.Helper()

	ds := &core.Dataset{Name: name, Schema: schema}
	for _, values := range rows {
		rec, err := core.NewRecord(schema, values)
		require.NoError(t, err)
		ds.Records = append(ds.Records, rec)
	}
	return ds
}

// IDs returns the "id" field of every row, formatted.
func IDs(s core.RowSubset) []string {
	out := make([]string, 0, s.Len())
	for _, r := range s.Rows {
		out = append(out, r.String("id"))
	}
	return out
}

// Render renders c to a string.
func Render(t testing.TB, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}
