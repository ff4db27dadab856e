// Package datasets provides the dataset browser: load status, schema and a
// row preview for every registered dataset, plus an ad hoc grouping of its
// rows.
package datasets

// PreviewRows is the number of rows shown on a dataset page.
const PreviewRows = 25

// Element ids patched over SSE.
const (
	ViewID = "dataset-view"
)

// Summary is one line of the dataset index.
type Summary struct {
	Name     string
	Rows     string
	Fields   string
	LoadedAt string
	Watched  string
	Error    string
}

// Column describes one field of a dataset schema.
type Column struct {
	Name  string
	Label string
	Kind  string
}

// Signals are posted by the grouping form.
type Signals struct {
	GroupBy string `json:"groupBy"`
}
