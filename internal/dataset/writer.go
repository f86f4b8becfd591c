// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/VernAnge/recommendations-app/internal/recommend"
)

// WriteCSV writes recs as a two-column table with an item,score header.
func WriteCSV(w io.Writer, recs []recommend.Recommendation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"item", "score"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range recs {
		if err := cw.Write([]string{r.ItemID, strconv.FormatFloat(r.Score, 'g', -1, 64)}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes recs as a JSON array of {"item", "score"} objects.
func WriteJSON(w io.Writer, recs []recommend.Recommendation) error {
	if recs == nil {
		recs = []recommend.Recommendation{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// Write dispatches on format: "csv" (default) or "json".
func Write(w io.Writer, format string, recs []recommend.Recommendation) error {
	switch format {
	case "", "csv":
		return WriteCSV(w, recs)
	case "json":
		return WriteJSON(w, recs)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
