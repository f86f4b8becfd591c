// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/VernAnge/recommendations-app/internal/recommend"
)

// DuckDBSource reads an interaction log through an in-memory DuckDB
// instance. Path may be a single file or a glob (logs/*.csv).
type DuckDBSource struct {
	Path    string
	Columns Columns

	// Parquet selects read_parquet instead of read_csv_auto.
	Parquet bool

	// Threads limits DuckDB worker threads. Zero means runtime.NumCPU().
	Threads int

	// MaxMemory caps DuckDB memory (for example "1GB"). Empty uses DuckDB's default.
	MaxMemory string
}

// String implements Source.
func (s *DuckDBSource) String() string {
	if s.Parquet {
		return "duckdb-parquet:" + s.Path
	}
	return "duckdb-csv:" + s.Path
}

// Load implements Source.
func (s *DuckDBSource) Load(ctx context.Context) ([]recommend.InteractionRecord, error) {
	if err := s.Columns.Validate(); err != nil {
		return nil, err
	}

	conn, err := sql.Open("duckdb", s.connString())
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = conn.Close() }() //nolint:errcheck // in-memory database

	present, err := s.columnNames(ctx, conn)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{s.Columns.User, s.Columns.Item} {
		if !present[strings.ToLower(name)] {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	// A configured kind column that the log lacks reads as empty, as in CSVSource.
	withKind := s.Columns.Kind != "" && present[strings.ToLower(s.Columns.Kind)]

	rows, err := conn.QueryContext(ctx, s.query(withKind))
	if err != nil {
		return nil, fmt.Errorf("query interaction log %s: %w", s.Path, err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // Err is checked below

	records := make([]recommend.InteractionRecord, 0, 1024)
	for rows.Next() {
		var user, item, kind sql.NullString
		if err := rows.Scan(&user, &item, &kind); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		records = append(records, recommend.InteractionRecord{
			UserID: user.String,
			ItemID: item.String,
			Kind:   kind.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return records, nil
}

// connString builds an in-memory DSN. Extension autoload is disabled so a
// restricted network cannot stall startup.
func (s *DuckDBSource) connString() string {
	threads := s.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	dsn := fmt.Sprintf(":memory:?threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false", threads)
	if s.MaxMemory != "" {
		dsn += "&max_memory=" + s.MaxMemory
	}
	return dsn
}

func (s *DuckDBSource) reader() string {
	if s.Parquet {
		return "read_parquet(" + quoteLiteral(s.Path) + ")"
	}
	return "read_csv_auto(" + quoteLiteral(s.Path) + ", header = true, all_varchar = true)"
}

// columnNames returns the lower-cased column names of the log.
func (s *DuckDBSource) columnNames(ctx context.Context, conn *sql.DB) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, "DESCRIBE SELECT * FROM "+s.reader())
	if err != nil {
		return nil, fmt.Errorf("describe interaction log %s: %w", s.Path, err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // Err is checked below

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("describe interaction log %s: %w", s.Path, err)
	}
	present := make(map[string]bool)
	for rows.Next() {
		// column_name comes first; the remaining DESCRIBE columns are ignored.
		var name string
		dest := make([]any, len(cols))
		dest[0] = &name
		for i := 1; i < len(dest); i++ {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		present[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe interaction log %s: %w", s.Path, err)
	}
	return present, nil
}

func (s *DuckDBSource) query(withKind bool) string {
	kind := "CAST(NULL AS VARCHAR)"
	if withKind {
		kind = "CAST(" + quoteIdent(s.Columns.Kind) + " AS VARCHAR)"
	}

	return fmt.Sprintf(
		"SELECT CAST(%s AS VARCHAR), CAST(%s AS VARCHAR), %s FROM %s",
		quoteIdent(s.Columns.User), quoteIdent(s.Columns.Item), kind, s.reader(),
	)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
