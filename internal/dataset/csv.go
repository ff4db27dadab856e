package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

const downloadTimeout = 60 * time.Second

// CSVLoader loads a CSV file with DuckDB's automatic schema detection.
type CSVLoader struct {
	Name string
	Path string
	URL  string

	// Client downloads URL; http.DefaultClient when nil.
	Client *http.Client
}

// Load parses the CSV file, downloading it first when a URL is configured.
func (l *CSVLoader) Load(ctx context.Context) (*core.Dataset, error) {
	path := l.Path
	if l.URL != "" {
		tmp, err := l.download(ctx)
		if err != nil {
			return nil, err
		}
		defer func() { _ = os.Remove(tmp) }()
		path = tmp
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", l.Name, err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	query := fmt.Sprintf(
		"SELECT * FROM read_csv_auto('%s', header=true)",
		strings.ReplaceAll(absPath, "'", "''"),
	)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: failed to read CSV: %w", l.Name, err)
	}
	defer func() { _ = rows.Close() }()

	return ScanRows(l.Name, rows)
}

// download fetches URL into a temporary file and returns its path.
func (l *CSVLoader) download(ctx context.Context) (string, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return "", fmt.Errorf("dataset %s: %w", l.Name, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("dataset %s: download failed: %w", l.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dataset %s: download failed: %s", l.Name, resp.Status)
	}

	f, err := os.CreateTemp("", "chartlink-*.csv")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("dataset %s: download failed: %w", l.Name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
