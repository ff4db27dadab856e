// Package dataset loads the tabular datasets charts are drawn from.
//
// Datasets come from one of three sources:
//   - bundled: sample tables shipped with the binary
//   - csv: a local file or http(s) URL parsed with DuckDB
//   - sql: a query against a duckdb, sqlite or postgres database
//
// Any source can add computed columns written as Starlark expressions.
package dataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

// Source names.
const (
	SourceBundled = "bundled"
	SourceCSV     = "csv"
	SourceSQL     = "sql"
)

// Loader obtains a complete Dataset.
type Loader interface {
	Load(ctx context.Context) (*core.Dataset, error)
}

// Config describes where a dataset comes from.
type Config struct {
	Source string `koanf:"source"`
	// Path is a local CSV file (csv).
	Path string `koanf:"path"`
	// URL is a remote CSV file (csv).
	URL string `koanf:"url"`
	// Driver is one of duckdb, sqlite, pgx (sql).
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
	// Query selects the rows (sql). Table is a shorthand for SELECT * FROM table.
	Query string `koanf:"query"`
	Table string `koanf:"table"`
	// Derive adds computed columns: name to Starlark expression.
	Derive map[string]string `koanf:"derive"`
}

// Watchable returns the local file backing the dataset, if any.
func (c Config) Watchable() string {
	if strings.ToLower(c.Source) == SourceCSV && c.URL == "" {
		return c.Path
	}
	return ""
}

// UnknownSourceError is returned for an unsupported dataset source.
type UnknownSourceError struct {
	Source    string
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown dataset source %q\nAvailable sources: %v", e.Source, e.Available)
}

// New creates the loader for a dataset configuration.
func New(name string, cfg Config) (Loader, error) {
	l, err := newSource(name, cfg)
	if err != nil || len(cfg.Derive) == 0 {
		return l, err
	}
	cols, err := ParseDerived(cfg.Derive)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	return &DeriveLoader{Inner: l, Columns: cols}, nil
}

func newSource(name string, cfg Config) (Loader, error) {
	switch strings.ToLower(cfg.Source) {
	case SourceBundled, "":
		table := cfg.Table
		if table == "" {
			table = name
		}
		return &BundledLoader{Name: name, Table: table}, nil
	case SourceCSV:
		if cfg.Path == "" && cfg.URL == "" {
			return nil, fmt.Errorf("dataset %s: csv source requires path or url", name)
		}
		return &CSVLoader{Name: name, Path: cfg.Path, URL: cfg.URL}, nil
	case SourceSQL:
		query, err := queryFor(cfg)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", name, err)
		}
		driver, err := driverName(cfg.Driver)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", name, err)
		}
		return &SQLLoader{Name: name, Driver: driver, DSN: cfg.DSN, Query: query}, nil
	}
	return nil, &UnknownSourceError{
		Source:    cfg.Source,
		Available: []string{SourceBundled, SourceCSV, SourceSQL},
	}
}

func queryFor(cfg Config) (string, error) {
	if q := strings.TrimSpace(cfg.Query); q != "" {
		return q, nil
	}
	if cfg.Table == "" {
		return "", fmt.Errorf("sql source requires query or table")
	}
	return "SELECT * FROM " + quoteIdent(cfg.Table), nil
}

// quoteIdent quotes a possibly schema-qualified identifier.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func driverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "duckdb", "":
		return "duckdb", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "pgx", "postgres", "postgresql":
		return "pgx", nil
	}
	return "", fmt.Errorf("unsupported sql driver %q (use duckdb, sqlite or pgx)", driver)
}
