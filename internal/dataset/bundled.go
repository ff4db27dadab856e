package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/leapstack-labs/chartlink/internal/dataset/bundled"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

var (
	bundledOnce sync.Once
	bundledDB   *sql.DB
	errBundled  error
)

func bundledConn(ctx context.Context) (*sql.DB, error) {
	bundledOnce.Do(func() {
		bundledDB, errBundled = bundled.Open(context.WithoutCancel(ctx))
	})
	return bundledDB, errBundled
}

// BundledLoader loads one of the sample tables shipped with the binary.
type BundledLoader struct {
	Name  string
	Table string
}

// Load reads the bundled table.
func (l *BundledLoader) Load(ctx context.Context) (*core.Dataset, error) {
	if !bundled.Has(l.Table) {
		return nil, fmt.Errorf("dataset %s: no bundled table %q (available: %v)", l.Name, l.Table, bundled.Tables())
	}
	db, err := bundledConn(ctx)
	if err != nil {
		return nil, err
	}
	sqlLoader := &SQLLoader{
		Name:  l.Name,
		DB:    db,
		Query: "SELECT * FROM " + quoteIdent(l.Table),
	}
	return sqlLoader.Load(ctx)
}
