// Package bundled provides the sample datasets shipped with chartlink.
// The tables are defined as embedded migrations and materialized in an
// in-memory SQLite database on first use.
package bundled

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // sqlite driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// Bundled table names.
const (
	BreastCancer = "breast_cancer"
	StockPrices  = "stock_prices"
)

// Tables lists the bundled tables.
func Tables() []string {
	return []string{BreastCancer, StockPrices}
}

// Has reports whether table is bundled.
func Has(table string) bool {
	for _, t := range Tables() {
		if t == table {
			return true
		}
	}
	return false
}

// goose keeps its configuration in package state.
var gooseMu sync.Mutex

// Open creates a fresh in-memory database holding every bundled table.
func Open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to create bundled tables: %w", err)
	}
	return nil
}
