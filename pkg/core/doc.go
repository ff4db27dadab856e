// Package core defines the shared language of chartlink.
//
// This package contains:
//   - Tabular data (Schema, Record, Dataset, RowSubset)
//   - Chart interaction payloads (ChartEvent, Point)
//   - Aggregated views fed to downstream charts (DerivedView, Group)
//   - Typed contract-violation errors
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
