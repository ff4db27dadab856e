// Package home provides the landing page: the list of pages and the
// status of every dataset.
package home

// DatasetRow is one line of the dataset status table.
type DatasetRow struct {
	Name     string
	Rows     string
	LoadedAt string
	Watched  string
	Error    string
}
