// Package ingest seeds the catalog from CSV files: model metadata, the
// benchmark dictionary, and benchmark scores. Names are normalized before
// foreign-key resolution; the raw strings are kept on score rows for audit.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Row is one catalog CSV record, keyed by header name. The per-file schemas
// (model, benchmark, score columns) are enforced by the Importer, not here.
type Row map[string]string

// LoadCSV reads a catalog seed file. The first record names the columns and
// every data record must match its width; a ragged file aborts the import
// rather than silently shifting score values into the wrong fields.
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ingest: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("ingest: %s has no header record", path)
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("ingest: %s record %d has %d fields, header has %d", path, i+2, len(record), len(headers))
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
