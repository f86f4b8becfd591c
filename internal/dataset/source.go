// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package dataset loads interaction logs and writes recommendation lists.
//
// Two sources are provided: CSVSource reads a delimited file directly and
// DuckDBSource runs the read through an embedded DuckDB instance, which also
// handles Parquet and glob patterns. Both map the log's columns by header
// name and yield recommend.InteractionRecord values. Cleaning the log is the
// caller's job; rows with an empty user or item are passed through and
// skipped later by recommend.BuildMatrix.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/VernAnge/recommendations-app/internal/recommend"
)

// Default column names of the interaction log.
const (
	DefaultUserColumn = "idcol"
	DefaultItemColumn = "item_descrip"
	DefaultKindColumn = "interaction"
)

// Supported formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatDuckDB  = "duckdb"
)

// ErrMissingColumn is returned when the log lacks a required column.
var ErrMissingColumn = errors.New("required column missing")

// Columns names the log columns holding each record field.
// Kind may be empty when the log has no interaction label.
type Columns struct {
	User string `koanf:"user"`
	Item string `koanf:"item"`
	Kind string `koanf:"kind"`
}

// DefaultColumns returns the standard column mapping.
func DefaultColumns() Columns {
	return Columns{User: DefaultUserColumn, Item: DefaultItemColumn, Kind: DefaultKindColumn}
}

// Validate checks that the required columns are named.
func (c Columns) Validate() error {
	if strings.TrimSpace(c.User) == "" {
		return fmt.Errorf("user column name is required")
	}
	if strings.TrimSpace(c.Item) == "" {
		return fmt.Errorf("item column name is required")
	}
	return nil
}

// Source yields the records of an interaction log.
type Source interface {
	// Load reads the full log.
	Load(ctx context.Context) ([]recommend.InteractionRecord, error)

	// String describes the source for logs.
	String() string
}

// NewSource returns a source for path. Format "csv" reads with CSVSource,
// "duckdb" and "parquet" use DuckDBSource. An empty format is inferred from
// the file extension (.parquet goes through DuckDB, anything else is CSV).
func NewSource(format, path string, cols Columns) (Source, error) {
	if path == "" {
		return nil, fmt.Errorf("data path is required")
	}
	if err := cols.Validate(); err != nil {
		return nil, err
	}

	if format == "" {
		format = FormatCSV
		if strings.EqualFold(filepath.Ext(path), ".parquet") {
			format = FormatParquet
		}
	}

	switch strings.ToLower(format) {
	case FormatCSV:
		return &CSVSource{Path: path, Columns: cols}, nil
	case FormatDuckDB:
		return &DuckDBSource{Path: path, Columns: cols}, nil
	case FormatParquet:
		return &DuckDBSource{Path: path, Columns: cols, Parquet: true}, nil
	default:
		return nil, fmt.Errorf("unsupported data format %q", format)
	}
}
