// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package dataset

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/VernAnge/recommendations-app/internal/recommend"
)

const sampleLog = `idcol,item_descrip,interaction,segment
u1,i1,view,a
u1,i1,view,a
u1,i2,view,b
u2,i1,purchase,a
u2,i3,view,a
u3,i2,view,b
u3,i3,click,b
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestReadCSV(t *testing.T) {
	records, err := ReadCSV(context.Background(), strings.NewReader(sampleLog), DefaultColumns(), 0)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(records) != 7 {
		t.Fatalf("got %d records, want 7", len(records))
	}
	if records[3] != (recommend.InteractionRecord{UserID: "u2", ItemID: "i1", Kind: "purchase"}) {
		t.Errorf("records[3] = %+v", records[3])
	}

	m, err := recommend.BuildMatrix(records)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	if m.Count("u1", "i1") != 2 {
		t.Errorf("Count(u1,i1) = %d, want 2", m.Count("u1", "i1"))
	}
}

func TestReadCSV_Columns(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		cols    Columns
		comma   rune
		want    []recommend.InteractionRecord
		wantErr error
	}{
		{
			name:  "custom names, case insensitive, no kind",
			input: "User;Product\nu1;p1\nu2;p2\n",
			cols:  Columns{User: "user", Item: "PRODUCT"},
			comma: ';',
			want: []recommend.InteractionRecord{
				{UserID: "u1", ItemID: "p1"},
				{UserID: "u2", ItemID: "p2"},
			},
		},
		{
			name:  "missing kind column is tolerated",
			input: "idcol,item_descrip\nu1,i1\n",
			cols:  DefaultColumns(),
			want:  []recommend.InteractionRecord{{UserID: "u1", ItemID: "i1"}},
		},
		{
			name:  "short row yields empty fields",
			input: "idcol,item_descrip,interaction\nu1\n",
			cols:  DefaultColumns(),
			want:  []recommend.InteractionRecord{{UserID: "u1"}},
		},
		{
			name:  "byte order mark",
			input: "\ufeffidcol,item_descrip\nu1,i1\n",
			cols:  DefaultColumns(),
			want:  []recommend.InteractionRecord{{UserID: "u1", ItemID: "i1"}},
		},
		{
			name:    "missing item column",
			input:   "idcol,other\nu1,x\n",
			cols:    DefaultColumns(),
			wantErr: ErrMissingColumn,
		},
		{
			name:    "empty file",
			input:   "",
			cols:    DefaultColumns(),
			wantErr: recommend.ErrEmptyInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCSV(context.Background(), strings.NewReader(tt.input), tt.cols, tt.comma)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadCSV() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadCSV() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadCSV() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCSVSource(t *testing.T) {
	src := &CSVSource{Path: writeFile(t, "log.csv", sampleLog), Columns: DefaultColumns()}
	records, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 7 {
		t.Errorf("got %d records, want 7", len(records))
	}

	missing := &CSVSource{Path: filepath.Join(t.TempDir(), "nope.csv"), Columns: DefaultColumns()}
	if _, err := missing.Load(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v", err)
	}
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		format  string
		path    string
		want    string
		wantErr bool
	}{
		{"", "log.csv", "csv:log.csv", false},
		{"", "log.PARQUET", "duckdb-parquet:log.PARQUET", false},
		{"duckdb", "logs/*.csv", "duckdb-csv:logs/*.csv", false},
		{"parquet", "x", "duckdb-parquet:x", false},
		{"xml", "x.xml", "", true},
		{"csv", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.path, func(t *testing.T) {
			src, err := NewSource(tt.format, tt.path, DefaultColumns())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && src.String() != tt.want {
				t.Errorf("String() = %q, want %q", src.String(), tt.want)
			}
		})
	}

	if _, err := NewSource("csv", "x.csv", Columns{User: "u"}); err == nil {
		t.Error("NewSource() should reject missing item column")
	}
}

func TestDuckDBSource_CSV(t *testing.T) {
	path := writeFile(t, "log.csv", sampleLog+"u4,,view,a\n")
	src := &DuckDBSource{Path: path, Columns: DefaultColumns(), Threads: 1}

	records, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 8 {
		t.Fatalf("got %d records, want 8", len(records))
	}

	csvRecords, err := ReadCSV(context.Background(), strings.NewReader(sampleLog), DefaultColumns(), 0)
	if err != nil {
		t.Fatal(err)
	}
	viaCSV, _ := recommend.BuildMatrix(csvRecords)
	viaDuck, err := recommend.BuildMatrix(records)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	if viaDuck.Stats().Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 for the row without item", viaDuck.Stats().Skipped)
	}
	if !reflect.DeepEqual(viaCSV.State().Counts, viaDuck.State().Counts) {
		t.Error("DuckDB and CSV sources disagree")
	}
}

func TestDuckDBSource_Parquet(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "log.csv")
	if err := os.WriteFile(csvPath, []byte(sampleLog), 0o600); err != nil {
		t.Fatal(err)
	}
	parquetPath := filepath.Join(dir, "log.parquet")

	conn, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	defer conn.Close()
	copyStmt := "COPY (SELECT * FROM read_csv_auto(" + quoteLiteral(csvPath) + ")) TO " +
		quoteLiteral(parquetPath) + " (FORMAT PARQUET)"
	if _, err := conn.Exec(copyStmt); err != nil {
		t.Skipf("parquet writer unavailable: %v", err)
	}

	src, err := NewSource("", parquetPath, DefaultColumns())
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	records, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 7 {
		t.Errorf("got %d records, want 7", len(records))
	}
}

func TestDuckDBSource_MissingColumn(t *testing.T) {
	path := writeFile(t, "log.csv", "a,b\n1,2\n")
	src := &DuckDBSource{Path: path, Columns: DefaultColumns(), Threads: 1}
	if _, err := src.Load(context.Background()); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("Load() error = %v, want ErrMissingColumn", err)
	}
}

func TestDuckDBSource_MissingKindColumn(t *testing.T) {
	content := "idcol,item_descrip\nu1,i1\nu2,i2\n"
	path := writeFile(t, "log.csv", content)
	src := &DuckDBSource{Path: path, Columns: DefaultColumns(), Threads: 1}

	records, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	viaCSV, err := ReadCSV(context.Background(), strings.NewReader(content), DefaultColumns(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(records, viaCSV) {
		t.Errorf("DuckDB records = %+v, CSV records = %+v", records, viaCSV)
	}
}

func TestQuoting(t *testing.T) {
	if got := quoteIdent(`we"ird`); got != `"we""ird"` {
		t.Errorf("quoteIdent() = %s", got)
	}
	if got := quoteLiteral("it's.csv"); got != "'it''s.csv'" {
		t.Errorf("quoteLiteral() = %s", got)
	}
}

func TestWriters(t *testing.T) {
	recs := []recommend.Recommendation{
		{ItemID: "i3", Score: 0.5},
		{ItemID: "needs,quote", Score: 0.25},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	want := "item,score\ni3,0.5\n\"needs,quote\",0.25\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := Write(&buf, "json", recs); err != nil {
		t.Fatalf("Write(json) error = %v", err)
	}
	var decoded []recommend.Recommendation
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if !reflect.DeepEqual(decoded, recs) {
		t.Errorf("decoded = %+v", decoded)
	}

	buf.Reset()
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("WriteJSON(nil) = %q, want []", buf.String())
	}

	if err := Write(&buf, "xml", recs); err == nil {
		t.Error("Write(xml) should fail")
	}
}
