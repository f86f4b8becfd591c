// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/VernAnge/recommendations-app/internal/recommend"
)

// CSVSource reads an interaction log from a delimited file with a header row.
type CSVSource struct {
	Path    string
	Columns Columns

	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// String implements Source.
func (s *CSVSource) String() string {
	return "csv:" + s.Path
}

// Load implements Source.
func (s *CSVSource) Load(ctx context.Context) ([]recommend.InteractionRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open interaction log: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file

	records, err := ReadCSV(ctx, f, s.Columns, s.Comma)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return records, nil
}

// ReadCSV parses a delimited interaction log. The first row is the header.
// Extra columns are ignored. A zero comma means ','.
func ReadCSV(ctx context.Context, r io.Reader, cols Columns, comma rune) ([]recommend.InteractionRecord, error) {
	if err := cols.Validate(); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file: %w", recommend.ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	userIdx, itemIdx, kindIdx, err := columnPositions(header, cols)
	if err != nil {
		return nil, err
	}

	records := make([]recommend.InteractionRecord, 0, 1024)
	for line := 2; ; line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := recommend.InteractionRecord{
			UserID: field(row, userIdx),
			ItemID: field(row, itemIdx),
		}
		if kindIdx >= 0 {
			rec.Kind = field(row, kindIdx)
		}
		records = append(records, rec)
	}
	return records, nil
}

// columnPositions resolves the configured names against the header.
// Matching ignores case and surrounding whitespace. kind is -1 when the
// kind column is unset or absent.
func columnPositions(header []string, cols Columns) (user, item, kind int, err error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	lookup := func(name string) (int, bool) {
		i, ok := pos[strings.ToLower(strings.TrimSpace(name))]
		return i, ok
	}

	user, ok := lookup(cols.User)
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMissingColumn, cols.User)
	}
	item, ok = lookup(cols.Item)
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMissingColumn, cols.Item)
	}
	kind = -1
	if cols.Kind != "" {
		if k, found := lookup(cols.Kind); found {
			kind = k
		}
	}
	return user, item, kind, nil
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
