package domain

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV reads positional projection rows from CSV, optionally skipping a header line.
// Rows may have any width; short rows decode with zero values for missing columns.
func ReadCSV(r io.Reader, skipHeader bool) ([]Row, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if skipHeader && len(records) > 0 {
		records = records[1:]
	}

	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = Schema.DecodeStringRow(rec)
	}
	return rows, records, nil
}
