package coupling

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

var testSchema = core.MustSchema(
	core.Field{Name: "id", Kind: core.KindNumber},
	core.Field{Name: "diagnosis", Kind: core.KindString},
	core.Field{Name: "radius_mean", Kind: core.KindNumber},
)

type testRow struct {
	id        int
	diagnosis string
	radius    float64
}

func newTestDataset(t *testing.T, rows ...testRow) *core.Dataset {
	t.Helper()

	ds := &core.Dataset{Name: "test", Schema: testSchema}
	for _, r := range rows {
		rec, err := core.NewRecord(testSchema, []any{r.id, r.diagnosis, r.radius})
		require.NoError(t, err)
		ds.Records = append(ds.Records, rec)
	}
	return ds
}

// interleaved returns 3 malignant and 3 benign rows alternating in dataset
// order so that trace-relative indexing differs from global indexing.
func interleaved(t *testing.T) *core.Dataset {
	t.Helper()
	return newTestDataset(t,
		testRow{1, "M", 17.99},
		testRow{2, "B", 13.54},
		testRow{3, "M", 20.57},
		testRow{4, "B", 13.08},
		testRow{5, "M", 19.69},
		testRow{6, "B", 9.504},
	)
}

func classTraces() []Trace {
	return []Trace{
		{Name: "malignant", Match: FieldEquals("diagnosis", "M")},
		{Name: "benign", Match: FieldEquals("diagnosis", "B")},
	}
}

func ids(s core.RowSubset) []string {
	out := make([]string, 0, s.Len())
	for _, r := range s.Rows {
		out = append(out, r.String("id"))
	}
	return out
}

func selectEvent(source string, points ...[2]int) *core.ChartEvent {
	ev := &core.ChartEvent{SourceID: source, Kind: core.EventSelected}
	for _, p := range points {
		ev.Points = append(ev.Points, core.Point{CurveIndex: p[0], PointIndex: p[1]})
	}
	return ev
}
