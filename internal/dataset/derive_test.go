package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/chartlink/internal/testutil"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

type fixedLoader struct{ ds *core.Dataset }

func (l fixedLoader) Load(context.Context) (*core.Dataset, error) { return l.ds, nil }

func priceRows(t *testing.T) Loader {
	t.Helper()
	schema := core.MustSchema(
		core.Field{Name: "ticker", Kind: core.KindString},
		core.Field{Name: "open", Kind: core.KindNumber},
		core.Field{Name: "close", Kind: core.KindNumber},
		core.Field{Name: "volume", Kind: core.KindNumber},
	)
	return fixedLoader{testutil.NewDataset(t, "prices", schema,
		[]any{"AAA", 10.0, 12.5, int64(300)},
		[]any{"BBB", 20.0, 19.0, nil},
	)}
}

func TestDeriveLoader(t *testing.T) {
	cols, err := ParseDerived(map[string]string{
		"direction": "'up' if close >= open else 'down'",
		"change":    "close - open",
		"lots":      "volume // 100 if volume != None else None",
	})
	require.NoError(t, err)

	ds, err := (&DeriveLoader{Inner: priceRows(t), Columns: cols}).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ticker", "open", "close", "volume", "change", "direction", "lots"}, ds.Schema.Names())
	_, field, _ := ds.Schema.Lookup("change")
	assert.Equal(t, core.KindNumber, field.Kind)
	_, field, _ = ds.Schema.Lookup("direction")
	assert.Equal(t, core.KindString, field.Kind)
	_, field, _ = ds.Schema.Lookup("lots")
	assert.Equal(t, core.KindNumber, field.Kind)

	assert.Equal(t, "up", ds.Records[0].String("direction"))
	assert.Equal(t, "down", ds.Records[1].String("direction"))
	change, _ := ds.Records[1].Float("change")
	assert.InDelta(t, -1.0, change, 1e-9)
	lots, _ := ds.Records[0].Value("lots")
	assert.Equal(t, int64(3), lots)
	lots, _ = ds.Records[1].Value("lots")
	assert.Nil(t, lots)
}

func TestDeriveLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		exprs   map[string]string
		wantErr string
	}{
		{"unknown name", map[string]string{"x": "price * 2"}, "undefined: price"},
		{"mixed kinds", map[string]string{"x": "close if close > 15 else 'low'"}, "row 1 is number, earlier rows are string"},
		{"unsupported type", map[string]string{"x": "[close]"}, "unsupported result type list"},
		{"runtime error", map[string]string{"x": "close / 0"}, "derived column x: row 0"},
		{"clashes with field", map[string]string{"close": "open"}, `duplicate field "close"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := ParseDerived(tt.exprs)
			require.NoError(t, err)
			_, err = (&DeriveLoader{Inner: priceRows(t), Columns: cols}).Load(context.Background())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNew_Derive(t *testing.T) {
	l, err := New("stock_prices", Config{Derive: map[string]string{"month": "date[:7]"}})
	require.NoError(t, err)
	require.IsType(t, &DeriveLoader{}, l)

	ds, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-01", ds.Records[0].String("month"))

	_, err = New("stock_prices", Config{Derive: map[string]string{"bad": "close +"}})
	assert.ErrorContains(t, err, "derived column bad")
}
