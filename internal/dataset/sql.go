package dataset

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/chartlink/pkg/core"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	_ "modernc.org/sqlite"              // sqlite driver
)

// SQLLoader loads a dataset from the result of a query.
type SQLLoader struct {
	Name   string
	Driver string
	DSN    string
	Query  string

	// DB, when set, is used instead of opening Driver/DSN. It is not closed
	// by the loader.
	DB *sql.DB
}

// Load runs the query and scans every row.
func (l *SQLLoader) Load(ctx context.Context) (*core.Dataset, error) {
	db := l.DB
	if db == nil {
		opened, err := sql.Open(l.Driver, l.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s connection: %w", l.Driver, err)
		}
		defer func() { _ = opened.Close() }()

		if err := opened.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping %s: %w", l.Driver, err)
		}
		db = opened
	}

	rows, err := db.QueryContext(ctx, l.Query)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: query failed: %w", l.Name, err)
	}
	defer func() { _ = rows.Close() }()

	return ScanRows(l.Name, rows)
}
